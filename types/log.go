package types

import "time"

// LogEntry is a request/response pair queued for asynchronous persistence.
type LogEntry struct {
	Method          string
	URL             string
	RequestBody     string
	ResponseBody    string
	RequestHeaders  string
	ResponseHeaders string
	StatusCode      int
	LatencyMs       int64
	CreatedAt       time.Time
}
