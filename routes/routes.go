package routes

import (
	"calendar-booking/config"
	"calendar-booking/constants"
	bookingCtrl "calendar-booking/controllers/booking"
	hubCtrl "calendar-booking/controllers/hub"
	serverCtrl "calendar-booking/controllers/server"
	slotCtrl "calendar-booking/controllers/slot"
	"calendar-booking/logger"
	"calendar-booking/middleware"
	"calendar-booking/services/events"
	"calendar-booking/services/reservation"
	"calendar-booking/services/sweeper"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg config.App, publisher *events.AMQPPublisher, svc *reservation.Service, sw *sweeper.Sweeper) {
	asyncLogger := logger.NewAsyncLogger(db)
	auth := middleware.NewServiceAuth(cfg.ServiceTokenSecret)

	bookingController := bookingCtrl.NewBookingController(db, asyncLogger, svc)
	slotController := slotCtrl.NewSlotController(db, asyncLogger, cfg)
	hubController := hubCtrl.NewHubController(db, asyncLogger)
	serverController := serverCtrl.NewServerController(db, publisher, sw)

	// Start the async logger processing goroutine
	go asyncLogger.ProcessLog()

	/*=============================================================================
	| Operational Routes
	===============================================================================*/
	app.Get("/health", serverController.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.RequestLogger(asyncLogger))

	/*=============================================================================
	| Hub Routes
	===============================================================================*/
	hubGroup := api.Group("/hubs")
	hubGroup.Get("/", hubController.Index)
	hubGroup.Get("/:id", hubController.Show)

	hubGroup.Post("/", auth.RequirePermissions(
		constants.PermCalendarAdmin,
	), hubController.Store)

	hubGroup.Put("/:id", auth.RequirePermissions(
		constants.PermCalendarAdmin,
	), hubController.Update)

	hubGroup.Patch("/:id", auth.RequirePermissions(
		constants.PermCalendarAdmin,
	), hubController.Update)

	hubGroup.Delete("/:id", auth.RequirePermissions(
		constants.PermCalendarAdmin,
	), hubController.Deactivate)

	hubGroup.Post("/:id/slots/generate", auth.RequirePermissions(
		constants.PermCalendarAdmin,
	), slotController.Generate)

	/*=============================================================================
	| Slot Routes
	===============================================================================*/
	slotGroup := api.Group("/slots")
	slotGroup.Get("/", slotController.Available)
	slotGroup.Get("/:id", slotController.Show)

	/*=============================================================================
	| Booking Routes
	===============================================================================*/
	bookingGroup := api.Group("/bookings")
	bookingGroup.Post("/", bookingController.Store)
	bookingGroup.Get("/reference/:reference", bookingController.ShowByReference)
	bookingGroup.Get("/:id", bookingController.Show)
	bookingGroup.Patch("/:id/confirm", bookingController.Confirm)
	bookingGroup.Patch("/:id/cancel", bookingController.CancelBooking)

	api.Get("/candidates/:id/bookings", bookingController.CandidateBookings)

	/*=============================================================================
	| Event Status Routes
	===============================================================================*/
	statusGroup := api.Group("/status")
	statusGroup.Get("/events", serverController.EventFallback)
	statusGroup.Post("/events/redrain", auth.RequirePermissions(
		constants.PermCalendarAdmin,
	), serverController.Redrain)
}
