package events

import "sync"

// RecordedEvent is a single Publish call captured by a Recorder.
type RecordedEvent struct {
	EventType  string
	Payload    map[string]any
	RoutingKey string
}

// Recorder is a Publisher that captures events in memory. It backs tests and
// can stand in when no broker is configured at all.
type Recorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(eventType string, payload map[string]any, routingKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{EventType: eventType, Payload: payload, RoutingKey: routingKey})
	return true
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// ByRoutingKey returns the captured events matching the given routing key.
func (r *Recorder) ByRoutingKey(key string) []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RecordedEvent
	for _, ev := range r.events {
		if ev.RoutingKey == key {
			out = append(out, ev)
		}
	}
	return out
}
