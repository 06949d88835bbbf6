package database

import (
	"fmt"
	"os"

	"calendar-booking/logger"
	"calendar-booking/models/booking"
	"calendar-booking/models/hub"
	"calendar-booking/models/log"
	"calendar-booking/models/slot"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection with auto migration and indexing
func InitDB() (*gorm.DB, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", err)
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_DATABASE")
	user := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	sslmode := os.Getenv("DB_SSLMODE") // Optional: "disable", "require", etc.

	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	if err := AutoMigrate(DB); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	if err := createIndexes(); err != nil {
		logger.Error("Failed to create indexes", err)
		return nil, err
	}
	logger.Success("All indexes created successfully")

	return DB, nil
}

// AutoMigrate runs auto migration for all models in dependency order.
func AutoMigrate(db *gorm.DB) error {
	// Stage 1: reference data
	stage1Models := []interface{}{
		&hub.Hub{},
	}
	for _, model := range stage1Models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 2: slots depend on hubs
	stage2Models := []interface{}{
		&slot.Slot{},
	}
	for _, model := range stage2Models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 3: bookings depend on slots, plus logging
	remainingModels := []interface{}{
		&booking.Booking{},
		&log.Log{},
	}
	for _, model := range remainingModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return nil
}

// createIndexes creates additional indexes for better performance
func createIndexes() error {
	// Availability queries filter by hub and start window, the sweeper scans
	// by status and deadline.
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_slots_hub_start ON slots(hub_id, start_time)").Error; err != nil {
		return fmt.Errorf("failed to create slot hub/start index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_slots_status_locked_until ON slots(status, locked_until)").Error; err != nil {
		return fmt.Errorf("failed to create slot status/locked_until index: %w", err)
	}

	// Booking indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_bookings_slot_status ON bookings(slot_id, status)").Error; err != nil {
		return fmt.Errorf("failed to create booking slot/status index: %w", err)
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_bookings_candidate_created ON bookings(candidate_id, created_at)").Error; err != nil {
		return fmt.Errorf("failed to create booking candidate/created_at index: %w", err)
	}

	// Log indexes
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create log created_at index: %w", err)
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
