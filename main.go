package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calendar-booking/config"
	"calendar-booking/database"
	"calendar-booking/logger"
	"calendar-booking/metrics"
	"calendar-booking/routes"
	"calendar-booking/services/events"
	"calendar-booking/services/reservation"
	"calendar-booking/services/sweeper"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	app := fiber.New(fiber.Config{
		ReadBufferSize:  32768, // 32KB read buffer
		WriteBufferSize: 32768, // 32KB write buffer
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       1 * 1024 * 1024, // 1MB body limit
	})

	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", err)
		fmt.Println("Error loading .env file", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", err)
		return
	}

	logger.Success("Server is running on ip: " + cfg.AppHost + " port: " + cfg.AppPort +
		"\n\t\t\t\t\t\t******************************************************************************************\n")

	db, err := database.InitDB()
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return
	}

	metrics.Register()

	// The publisher never blocks startup: with the broker down it buffers
	// events locally and the service runs degraded.
	publisher := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()

	reservationService := reservation.NewService(db, publisher, cfg.LockWindow())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sw := sweeper.New(db, publisher, cfg.SweepInterval())
	go sw.Start(ctx)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
	}))

	routes.SetupRoutes(app, db, cfg, publisher, reservationService, sw)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down...")
		sw.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Server shutdown failed", err)
		}
	}()

	if err := app.Listen(cfg.AppHost + ":" + cfg.AppPort); err != nil {
		logger.Error("Server stopped", err)
	}
}
