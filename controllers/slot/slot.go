package slot

import (
	"errors"
	"fmt"
	"time"

	"calendar-booking/config"
	"calendar-booking/logger"
	hubModel "calendar-booking/models/hub"
	slotModel "calendar-booking/models/slot"
	"calendar-booking/types"
	slotTypes "calendar-booking/types/slot"
	"calendar-booking/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// SlotController handles slot-related HTTP requests
type SlotController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
	Config config.App
}

// NewSlotController creates a new slot controller
func NewSlotController(db *gorm.DB, asyncLogger *logger.AsyncLogger, cfg config.App) *SlotController {
	return &SlotController{
		DB:     db,
		Logger: asyncLogger,
		Config: cfg,
	}
}

// Available lists bookable slots for a hub on a given date. Availability is
// computed against the wall clock at query time; a slot whose lock deadline
// has passed shows up here even before the sweeper has reclaimed it.
func (sc *SlotController) Available(c *fiber.Ctx) error {
	hubID, err := uuid.Parse(c.Query("hub"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "hub query parameter must be a valid UUID",
			Data:    nil,
		})
	}

	dateStr := c.Query("date")
	if dateStr == "" {
		dateStr = time.Now().UTC().Format("2006-01-02")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "date must be in YYYY-MM-DD format",
			Data:    nil,
		})
	}

	nowAt := time.Now().UTC()
	dayStart := now.New(date).BeginningOfDay()
	dayEnd := now.New(date).EndOfDay()

	var slots []slotModel.Slot
	err = sc.DB.WithContext(c.Context()).
		Where("hub_id = ?", hubID).
		Where("start_time BETWEEN ? AND ?", dayStart, dayEnd).
		Where("status = ?", slotModel.StatusAvailable).
		Where("locked_until IS NULL OR locked_until <= ?", nowAt).
		Where("current_bookings < max_capacity").
		Where("start_time > ?", nowAt).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		logger.Error("Failed to query available slots", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	// Optional minimum duration filter, applied in memory since interval
	// arithmetic is not portable across drivers.
	out := make([]slotTypes.SlotResponse, 0, len(slots))
	minDuration := c.QueryInt("duration_minutes", 0)
	for _, s := range slots {
		if minDuration > 0 && int(s.EndTime.Sub(s.StartTime).Minutes()) < minDuration {
			continue
		}
		out = append(out, slotTypes.FromModel(s, nowAt))
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: fmt.Sprintf("Found %d available slots", len(out)),
		Data:    out,
	})
}

// Show returns a single slot with availability computed at response time.
func (sc *SlotController) Show(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid slot ID",
			Data:    nil,
		})
	}

	var sl slotModel.Slot
	if err := sc.DB.WithContext(c.Context()).First(&sl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Slot not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load slot", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Slot retrieved successfully",
		Data:    slotTypes.FromModel(sl, time.Now().UTC()),
	})
}

// Generate creates slots for a hub over a date range from its operating
// schedule. Existing slots are left untouched, so the endpoint is safe to
// re-run for overlapping ranges.
func (sc *SlotController) Generate(c *fiber.Ctx) error {
	hubID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid hub ID",
			Data:    nil,
		})
	}

	var req slotTypes.SlotGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	var h hubModel.Hub
	if err := sc.DB.WithContext(c.Context()).First(&h, "id = ?", hubID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Hub not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load hub", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}
	if !h.IsActive {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ApiResponse{
			Status:  fiber.StatusUnprocessableEntity,
			Message: "Cannot generate slots for an inactive hub",
			Data:    nil,
		})
	}

	startDate, _ := time.Parse("2006-01-02", req.StartDate)
	endDate, _ := time.Parse("2006-01-02", req.EndDate)
	if endDate.Before(startDate) {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "end_date must not be before start_date",
			Data:    nil,
		})
	}

	// Slots cannot be generated beyond the advance booking horizon.
	horizon := now.New(time.Now().UTC()).BeginningOfDay().AddDate(0, 0, sc.Config.MaxAdvanceBookingDays)
	if endDate.After(horizon) {
		endDate = horizon
	}

	startHour, startMinute, err := utils.ParseHHMM(h.OperatingHoursStart)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ApiResponse{
			Status:  fiber.StatusUnprocessableEntity,
			Message: "Hub has an invalid operating hours configuration",
			Data:    nil,
		})
	}
	endHour, endMinute, err := utils.ParseHHMM(h.OperatingHoursEnd)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ApiResponse{
			Status:  fiber.StatusUnprocessableEntity,
			Message: "Hub has an invalid operating hours configuration",
			Data:    nil,
		})
	}
	operatingDays, err := utils.ParseOperatingDays(h.OperatingDays)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ApiResponse{
			Status:  fiber.StatusUnprocessableEntity,
			Message: "Hub has an invalid operating days configuration",
			Data:    nil,
		})
	}

	maxCapacity := req.MaxCapacity
	if maxCapacity == 0 {
		maxCapacity = h.Capacity
	}
	slotDuration := sc.Config.SlotDuration()

	// Load existing slot start times in range once, to skip duplicates.
	var existing []slotModel.Slot
	rangeStart := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, 0, time.UTC)
	if err := sc.DB.WithContext(c.Context()).
		Select("start_time").
		Where("hub_id = ? AND start_time BETWEEN ? AND ?", hubID, rangeStart, rangeEnd).
		Find(&existing).Error; err != nil {
		logger.Error("Failed to load existing slots", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}
	taken := make(map[time.Time]bool, len(existing))
	for _, s := range existing {
		taken[s.StartTime.UTC()] = true
	}

	created := 0
	skipped := 0
	err = sc.DB.WithContext(c.Context()).Transaction(func(tx *gorm.DB) error {
		for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
			if !operatingDays[day.Weekday()] {
				continue
			}
			dayOpen := time.Date(day.Year(), day.Month(), day.Day(), startHour, startMinute, 0, 0, time.UTC)
			dayClose := time.Date(day.Year(), day.Month(), day.Day(), endHour, endMinute, 0, 0, time.UTC)
			for start := dayOpen; !start.Add(slotDuration).After(dayClose); start = start.Add(slotDuration) {
				if taken[start] {
					skipped++
					continue
				}
				newSlot := slotModel.Slot{
					HubID:       hubID,
					StartTime:   start,
					EndTime:     start.Add(slotDuration),
					Status:      slotModel.StatusAvailable,
					MaxCapacity: maxCapacity,
				}
				if err := tx.Create(&newSlot).Error; err != nil {
					return err
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to generate slots", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to generate slots",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Generated %d slots for hub %s (%d skipped)", created, h.Name, skipped))
	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Slots generated successfully",
		Data: fiber.Map{
			"created": created,
			"skipped": skipped,
		},
	})
}
