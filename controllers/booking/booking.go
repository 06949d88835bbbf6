package booking

import (
	"errors"
	"fmt"
	"time"

	"calendar-booking/logger"
	slotModel "calendar-booking/models/slot"
	"calendar-booking/services/reservation"
	"calendar-booking/types"
	bookingTypes "calendar-booking/types/booking"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingController handles booking-related HTTP requests
type BookingController struct {
	DB          *gorm.DB
	Logger      *logger.AsyncLogger
	Reservation *reservation.Service
}

// NewBookingController creates a new booking controller
func NewBookingController(db *gorm.DB, asyncLogger *logger.AsyncLogger, svc *reservation.Service) *BookingController {
	return &BookingController{
		DB:          db,
		Logger:      asyncLogger,
		Reservation: svc,
	}
}

// Store locks a slot and creates a pending booking against it. The booking
// must be confirmed before the lock deadline or the sweeper reclaims it.
func (bc *BookingController) Store(c *fiber.Ctx) error {
	var req bookingTypes.BookingCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
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

	slotID, _ := uuid.Parse(req.SlotID)
	candidateID, _ := uuid.Parse(req.CandidateID)

	lockReq := reservation.LockRequest{
		SlotID:       slotID,
		CandidateID:  candidateID,
		ContactEmail: req.ContactEmail,
	}
	if req.ContactPhone != "" {
		lockReq.ContactPhone = &req.ContactPhone
	}
	if req.SpecialRequirements != "" {
		lockReq.SpecialRequirements = &req.SpecialRequirements
	}

	booking, lockExpiresAt, err := bc.Reservation.LockAndReserve(c.Context(), lockReq)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrSlotNotFound):
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Slot not found",
				Data:    nil,
			})
		case errors.Is(err, reservation.ErrSlotInPast):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(types.ApiResponse{
				Status:  fiber.StatusUnprocessableEntity,
				Message: "Cannot book slots in the past",
				Data:    nil,
			})
		case errors.Is(err, reservation.ErrSlotUnavailable):
			return c.Status(fiber.StatusConflict).JSON(types.ApiResponse{
				Status:  fiber.StatusConflict,
				Message: bc.conflictMessage(c, slotID),
				Data:    nil,
			})
		}
		logger.Error("Failed to create booking", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(types.ApiResponse{
			Status:  fiber.StatusServiceUnavailable,
			Message: "Booking service temporarily unavailable",
			Data:    nil,
		})
	}

	resp := bookingTypes.BookingCreateResponse{
		Booking:       bookingTypes.FromModel(*booking, time.Now().UTC()),
		LockExpiresAt: lockExpiresAt,
		Message:       fmt.Sprintf("Slot locked until %s. Confirm the booking before then.", lockExpiresAt.Format(time.RFC3339)),
	}
	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Booking created successfully",
		Data:    resp,
	})
}

// conflictMessage reloads the slot to tell the caller why the claim lost.
func (bc *BookingController) conflictMessage(c *fiber.Ctx, slotID uuid.UUID) string {
	var sl slotModel.Slot
	if err := bc.DB.WithContext(c.Context()).First(&sl, "id = ?", slotID).Error; err != nil {
		return "Slot is not available for booking"
	}
	now := time.Now().UTC()
	switch {
	case sl.Status == slotModel.StatusLocked && sl.LockedUntil != nil && sl.LockedUntil.After(now):
		return fmt.Sprintf("Slot is locked by another candidate until %s", sl.LockedUntil.Format(time.RFC3339))
	case sl.Status == slotModel.StatusBooked:
		return "Slot is already fully booked"
	case sl.Status == slotModel.StatusUnavailable:
		return "Slot has been taken out of service"
	case sl.CurrentBookings >= sl.MaxCapacity:
		return "Slot has no remaining capacity"
	}
	return "Slot is not available for booking"
}

// Show returns a single booking by ID with its slot snapshot.
func (bc *BookingController) Show(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid booking ID",
			Data:    nil,
		})
	}

	booking, err := bc.Reservation.BookingByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, reservation.ErrBookingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Booking not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load booking", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking retrieved successfully",
		Data:    bookingTypes.FromModel(*booking, time.Now().UTC()),
	})
}

// ShowByReference returns a single booking by its reference code.
func (bc *BookingController) ShowByReference(c *fiber.Ctx) error {
	reference := c.Params("reference")
	if reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Booking reference is required",
			Data:    nil,
		})
	}

	booking, err := bc.Reservation.BookingByReference(c.Context(), reference)
	if err != nil {
		if errors.Is(err, reservation.ErrBookingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Booking not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load booking by reference", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking retrieved successfully",
		Data:    bookingTypes.FromModel(*booking, time.Now().UTC()),
	})
}

// Confirm settles a pending booking while its slot lock is still live.
func (bc *BookingController) Confirm(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid booking ID",
			Data:    nil,
		})
	}

	booking, err := bc.Reservation.Confirm(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrBookingNotFound):
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Booking not found",
				Data:    nil,
			})
		case errors.Is(err, reservation.ErrBookingExpired):
			return c.Status(fiber.StatusGone).JSON(types.ApiResponse{
				Status:  fiber.StatusGone,
				Message: "Booking lock has expired; please book a new slot",
				Data:    nil,
			})
		case errors.Is(err, reservation.ErrBookingFinalized):
			return c.Status(fiber.StatusConflict).JSON(types.ApiResponse{
				Status:  fiber.StatusConflict,
				Message: "Booking is already completed",
				Data:    nil,
			})
		}
		logger.Error("Failed to confirm booking", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking confirmed successfully",
		Data:    bookingTypes.FromModel(*booking, time.Now().UTC()),
	})
}

// CancelBooking cancels a booking and releases its slot. Cancelling an
// already-cancelled booking returns the current state unchanged.
func (bc *BookingController) CancelBooking(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid booking ID",
			Data:    nil,
		})
	}

	reason := c.Query("reason")
	if reason == "" {
		reason = "cancelled by candidate"
	}

	booking, err := bc.Reservation.Cancel(c.Context(), id, reason)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrBookingNotFound):
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Booking not found",
				Data:    nil,
			})
		case errors.Is(err, reservation.ErrBookingFinalized):
			return c.Status(fiber.StatusConflict).JSON(types.ApiResponse{
				Status:  fiber.StatusConflict,
				Message: "Completed bookings cannot be cancelled",
				Data:    nil,
			})
		}
		logger.Error("Failed to cancel booking", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking cancelled successfully",
		Data:    bookingTypes.FromModel(*booking, time.Now().UTC()),
	})
}

// CandidateBookings lists all bookings for a candidate, newest first.
func (bc *BookingController) CandidateBookings(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid candidate ID",
			Data:    nil,
		})
	}

	bookings, err := bc.Reservation.BookingsByCandidate(c.Context(), candidateID)
	if err != nil {
		logger.Error("Failed to load candidate bookings", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	now := time.Now().UTC()
	out := make([]bookingTypes.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingTypes.FromModel(b, now))
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: fmt.Sprintf("Found %d bookings", len(out)),
		Data:    out,
	})
}
