package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calendar-booking/logger"
	"calendar-booking/metrics"
	bookingModel "calendar-booking/models/booking"
	slotModel "calendar-booking/models/slot"
	"calendar-booking/services/events"
	"calendar-booking/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sentinel errors mapped by the HTTP layer onto 404/409/410/422.
var (
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotUnavailable  = errors.New("slot is not available for booking")
	ErrSlotInPast       = errors.New("cannot book slots in the past")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBookingExpired   = errors.New("booking lock has expired")
	ErrBookingFinalized = errors.New("booking is already completed")
)

// LockRequest carries everything needed to lock a slot and open a booking.
type LockRequest struct {
	SlotID              uuid.UUID
	CandidateID         uuid.UUID
	ContactEmail        string
	ContactPhone        *string
	SpecialRequirements *string
}

// Service is the reservation engine: it serializes conflicting claims on a
// slot through conditional updates inside single storage transactions. No
// in-process locking is used, so multiple service instances can run
// concurrently against the same store.
type Service struct {
	db         *gorm.DB
	publisher  events.Publisher
	lockWindow time.Duration
}

func NewService(db *gorm.DB, publisher events.Publisher, lockWindow time.Duration) *Service {
	if lockWindow <= 0 {
		lockWindow = 15 * time.Minute
	}
	return &Service{db: db, publisher: publisher, lockWindow: lockWindow}
}

// LockWindow returns the configured lock duration.
func (s *Service) LockWindow() time.Duration {
	return s.lockWindow
}

// LockAndReserve atomically transitions a usable slot to locked and creates
// a pending booking against it. The availability re-check and the lock write
// are one conditional UPDATE, so of any number of concurrent callers exactly
// one wins per capacity unit; the rest observe the committed state and get
// ErrSlotUnavailable.
func (s *Service) LockAndReserve(ctx context.Context, req LockRequest) (*bookingModel.Booking, time.Time, error) {
	now := time.Now().UTC()
	deadline := now.Add(s.lockWindow)
	reference := utils.GenerateBookingReference()
	holder := "booking_" + reference

	var b bookingModel.Booking
	var sl slotModel.Slot

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sl, "id = ?", req.SlotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSlotNotFound
			}
			return err
		}
		if !sl.StartTime.After(now) {
			return ErrSlotInPast
		}

		// The usability predicate re-checked and the lock taken in one
		// statement; a concurrent winner makes this match zero rows.
		res := tx.Model(&slotModel.Slot{}).
			Where("id = ? AND status = ?", req.SlotID, slotModel.StatusAvailable).
			Where("locked_until IS NULL OR locked_until <= ?", now).
			Where("current_bookings < max_capacity").
			Updates(map[string]any{
				"status":       slotModel.StatusLocked,
				"locked_until": deadline,
				"locked_by":    holder,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSlotUnavailable
		}

		b = bookingModel.Booking{
			SlotID:              req.SlotID,
			CandidateID:         req.CandidateID,
			Status:              bookingModel.BookingStatusPending,
			BookingReference:    reference,
			ContactEmail:        req.ContactEmail,
			ContactPhone:        req.ContactPhone,
			SpecialRequirements: req.SpecialRequirements,
		}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}

		return tx.First(&sl, "id = ?", req.SlotID).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotNotFound):
			metrics.IncReservationAttempt("not_found")
		case errors.Is(err, ErrSlotUnavailable):
			metrics.IncReservationAttempt("conflict")
		case errors.Is(err, ErrSlotInPast):
			metrics.IncReservationAttempt("past_slot")
		}
		return nil, time.Time{}, err
	}

	metrics.IncReservationAttempt("locked")
	logger.Success(fmt.Sprintf("Slot %s locked until %s for booking %s", sl.ID, deadline.Format(time.RFC3339), reference))

	// Events go out strictly after the transaction committed; announcing a
	// rolled-back state would be worse than announcing late.
	s.publisher.Publish("SlotLocked", map[string]any{
		"slot_id":      sl.ID.String(),
		"hub_id":       sl.HubID.String(),
		"start_time":   sl.StartTime.Format(time.RFC3339),
		"end_time":     sl.EndTime.Format(time.RFC3339),
		"locked_until": deadline.Format(time.RFC3339),
		"locked_by":    holder,
	}, "calendar.slot.locked")
	s.publisher.Publish("BookingCreated", map[string]any{
		"booking_id":        b.ID.String(),
		"slot_id":           b.SlotID.String(),
		"candidate_id":      b.CandidateID.String(),
		"booking_reference": b.BookingReference,
		"contact_email":     b.ContactEmail,
		"slot_start_time":   sl.StartTime.Format(time.RFC3339),
		"slot_end_time":     sl.EndTime.Format(time.RFC3339),
		"hub_id":            sl.HubID.String(),
		"status":            b.Status.String(),
		"created_at":        b.CreatedAt.Format(time.RFC3339),
	}, "calendar.booking.created")

	return &b, deadline, nil
}

// Confirm settles a pending booking while its slot lock is still live. The
// slot moves to booked and its occupancy count grows by one. Confirming
// after the deadline fails with ErrBookingExpired rather than silently
// succeeding, so the sweeper's view stays consistent; whichever of the two
// commits first wins and the loser fails cleanly.
func (s *Service) Confirm(ctx context.Context, bookingID uuid.UUID) (*bookingModel.Booking, error) {
	now := time.Now().UTC()

	var b bookingModel.Booking
	alreadyConfirmed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		switch b.Status {
		case bookingModel.BookingStatusConfirmed:
			alreadyConfirmed = true
			return nil
		case bookingModel.BookingStatusCancelled:
			// The sweeper (or the candidate) got here first.
			return ErrBookingExpired
		case bookingModel.BookingStatusCompleted:
			return ErrBookingFinalized
		}

		res := tx.Model(&slotModel.Slot{}).
			Where("id = ? AND status = ? AND locked_until > ?", b.SlotID, slotModel.StatusLocked, now).
			Updates(map[string]any{
				"status":           slotModel.StatusBooked,
				"current_bookings": gorm.Expr("current_bookings + 1"),
				"locked_until":     nil,
				"locked_by":        nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookingExpired
		}

		res = tx.Model(&bookingModel.Booking{}).
			Where("id = ? AND status = ?", bookingID, bookingModel.BookingStatusPending).
			Updates(map[string]any{
				"status":       bookingModel.BookingStatusConfirmed,
				"confirmed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookingExpired
		}

		return tx.First(&b, "id = ?", bookingID).Error
	})
	if err != nil {
		return nil, err
	}

	if alreadyConfirmed {
		return &b, nil
	}

	metrics.IncBookingConfirmed()
	logger.Success(fmt.Sprintf("Booking %s confirmed", b.BookingReference))

	s.publisher.Publish("BookingConfirmed", map[string]any{
		"booking_id":        b.ID.String(),
		"booking_reference": b.BookingReference,
		"confirmed_at":      b.ConfirmedAt.Format(time.RFC3339),
	}, "calendar.booking.confirmed")

	return &b, nil
}

// Cancel transitions a booking to cancelled and hands its capacity back to
// the slot. Cancelling an already-cancelled booking is a no-op that returns
// the current state. A completed booking cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, bookingID uuid.UUID, reason string) (*bookingModel.Booking, error) {
	b, changed, err := s.cancelTx(ctx, s.db, bookingID, reason)
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.IncBookingCancelled("user")
		s.PublishCancelled(b, reason)
	}
	return b, nil
}

func (s *Service) cancelTx(ctx context.Context, db *gorm.DB, bookingID uuid.UUID, reason string) (*bookingModel.Booking, bool, error) {
	now := time.Now().UTC()

	var b bookingModel.Booking
	changed := false

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		switch b.Status {
		case bookingModel.BookingStatusCancelled:
			return nil
		case bookingModel.BookingStatusCompleted:
			return ErrBookingFinalized
		}

		if b.Status == bookingModel.BookingStatusConfirmed {
			// Hand the capacity unit back; the slot always reopens since
			// the count drops below max_capacity.
			res := tx.Model(&slotModel.Slot{}).
				Where("id = ? AND current_bookings > 0", b.SlotID).
				Updates(map[string]any{
					"status":           slotModel.StatusAvailable,
					"current_bookings": gorm.Expr("current_bookings - 1"),
					"locked_until":     nil,
					"locked_by":        nil,
				})
			if res.Error != nil {
				return res.Error
			}
		} else {
			// Pending: just release the lock. Guarded on status so a
			// sweeper that already released the slot makes this a no-op.
			res := tx.Model(&slotModel.Slot{}).
				Where("id = ? AND status = ?", b.SlotID, slotModel.StatusLocked).
				Updates(map[string]any{
					"status":       slotModel.StatusAvailable,
					"locked_until": nil,
					"locked_by":    nil,
				})
			if res.Error != nil {
				return res.Error
			}
		}

		res := tx.Model(&bookingModel.Booking{}).
			Where("id = ? AND status IN ?", bookingID, []bookingModel.BookingStatus{
				bookingModel.BookingStatusPending,
				bookingModel.BookingStatusConfirmed,
			}).
			Updates(map[string]any{
				"status":              bookingModel.BookingStatusCancelled,
				"cancelled_at":        now,
				"cancellation_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0

		return tx.First(&b, "id = ?", bookingID).Error
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		logger.Info(fmt.Sprintf("Booking %s cancelled: %s", b.BookingReference, reason))
	}
	return &b, changed, nil
}

// PublishCancelled emits the cancellation pair of events for a booking that
// has just transitioned to cancelled.
func (s *Service) PublishCancelled(b *bookingModel.Booking, reason string) {
	cancelledAt := time.Now().UTC()
	if b.CancelledAt != nil {
		cancelledAt = *b.CancelledAt
	}
	s.publisher.Publish("BookingCancelled", map[string]any{
		"booking_id":        b.ID.String(),
		"booking_reference": b.BookingReference,
		"cancelled_at":      cancelledAt.Format(time.RFC3339),
		"reason":            reason,
	}, "calendar.booking.cancelled")

	var sl slotModel.Slot
	if err := s.db.First(&sl, "id = ?", b.SlotID).Error; err == nil {
		s.publisher.Publish("SlotUnlocked", map[string]any{
			"slot_id":    sl.ID.String(),
			"hub_id":     sl.HubID.String(),
			"start_time": sl.StartTime.Format(time.RFC3339),
			"end_time":   sl.EndTime.Format(time.RFC3339),
		}, "calendar.slot.unlocked")
	}
}

// BookingByID loads a booking with its slot association.
func (s *Service) BookingByID(ctx context.Context, id uuid.UUID) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.db.WithContext(ctx).Preload("Slot").First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// BookingByReference loads a booking by its reference code.
func (s *Service) BookingByReference(ctx context.Context, reference string) (*bookingModel.Booking, error) {
	var b bookingModel.Booking
	if err := s.db.WithContext(ctx).Preload("Slot").First(&b, "booking_reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// BookingsByCandidate returns all bookings for a candidate, newest first.
func (s *Service) BookingsByCandidate(ctx context.Context, candidateID uuid.UUID) ([]bookingModel.Booking, error) {
	var out []bookingModel.Booking
	err := s.db.WithContext(ctx).
		Preload("Slot").
		Where("candidate_id = ?", candidateID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
