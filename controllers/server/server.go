package server

import (
	"calendar-booking/services/events"
	"calendar-booking/services/sweeper"
	"calendar-booking/types"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ServerController handles operational endpoints: health, event fallback
// inspection and redrain.
type ServerController struct {
	DB        *gorm.DB
	Publisher *events.AMQPPublisher
	Sweeper   *sweeper.Sweeper
}

func NewServerController(db *gorm.DB, publisher *events.AMQPPublisher, sw *sweeper.Sweeper) *ServerController {
	return &ServerController{
		DB:        db,
		Publisher: publisher,
		Sweeper:   sw,
	}
}

// Health reports service health. The service is degraded but alive when the
// broker is down (events buffer locally); it is unhealthy when storage is
// unreachable.
func (sc *ServerController) Health(c *fiber.Ctx) error {
	dbHealthy := false
	if sqlDB, err := sc.DB.DB(); err == nil {
		dbHealthy = sqlDB.Ping() == nil
	}

	status := "healthy"
	httpStatus := fiber.StatusOK
	if !dbHealthy {
		status = "unhealthy"
		httpStatus = fiber.StatusServiceUnavailable
	} else if !sc.Publisher.Connected() {
		status = "degraded"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":   status,
		"service":  "calendar-service",
		"database": dbHealthy,
		"broker": fiber.Map{
			"connected":       sc.Publisher.Connected(),
			"fallback_events": sc.Publisher.FallbackLen(),
		},
		"sweeper": sc.Sweeper.Status(),
	})
}

// EventFallback returns the events currently buffered because the broker was
// unreachable when they were published.
func (sc *ServerController) EventFallback(c *fiber.Ctx) error {
	evs := sc.Publisher.FallbackEvents()
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Fallback events retrieved",
		Data: fiber.Map{
			"count":  len(evs),
			"events": evs,
		},
	})
}

// Redrain attempts to deliver buffered fallback events to the broker.
func (sc *ServerController) Redrain(c *fiber.Ctx) error {
	delivered, remaining := sc.Publisher.Redrain()
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Redrain completed",
		Data: fiber.Map{
			"delivered": delivered,
			"remaining": remaining,
		},
	})
}
