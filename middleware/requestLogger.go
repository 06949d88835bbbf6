package middleware

import (
	"time"

	"calendar-booking/logger"
	"calendar-booking/types"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger persists request/response pairs for mutating calls through
// the async logger. Bodies and headers are deep copied before the handler's
// buffers are recycled by fasthttp.
func RequestLogger(asyncLogger *logger.AsyncLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		entry := types.LogEntry{
			Method:          string(append([]byte(nil), c.Method()...)),
			URL:             string(append([]byte(nil), c.OriginalURL()...)),
			RequestBody:     string(append([]byte(nil), c.Body()...)),
			ResponseBody:    string(append([]byte(nil), c.Response().Body()...)),
			RequestHeaders:  string(append([]byte(nil), c.Request().Header.Header()...)),
			ResponseHeaders: string(append([]byte(nil), c.Response().Header.Header()...)),
			StatusCode:      c.Response().StatusCode(),
			LatencyMs:       time.Since(start).Milliseconds(),
			CreatedAt:       time.Now(),
		}
		asyncLogger.Log(entry)

		return err
	}
}
