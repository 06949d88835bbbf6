package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"calendar-booking/logger"
	"calendar-booking/metrics"
	bookingModel "calendar-booking/models/booking"
	slotModel "calendar-booking/models/slot"
	"calendar-booking/services/events"

	"gorm.io/gorm"
)

// ExpiredLockReason is recorded on bookings cancelled by the sweeper.
const ExpiredLockReason = "lock expired"

// Sweeper reclaims slots whose lock deadline passed without a confirm or an
// explicit cancel. It is cleanup, not the correctness mechanism: the
// reservation engine always re-validates usability itself, so a lock may sit
// expired-but-unreclaimed for up to one sweep interval without harm.
type Sweeper struct {
	db        *gorm.DB
	publisher events.Publisher
	interval  time.Duration

	mu            sync.Mutex
	running       bool
	stopCh        chan struct{}
	lastRun       time.Time
	lastReclaimed int
}

func New(db *gorm.DB, publisher events.Publisher, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		db:        db,
		publisher: publisher,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called. A stopped sweeper can be started again.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		// Only clear the flag for our own run; a replacement loop may
		// already be underway with a fresh stop channel.
		if s.stopCh == stopCh {
			s.running = false
		}
		s.mu.Unlock()
	}()

	logger.Info(fmt.Sprintf("Expiry sweeper started, interval %s", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Expiry sweeper stopped by context")
			return
		case <-stopCh:
			logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				// Transient failures self-heal: the next cycle re-scans.
				logger.Error("Sweep cycle failed", err)
			}
		}
	}
}

// Stop terminates the sweep loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

// RunOnce performs a single sweep: every slot still marked locked with a
// deadline at or before now is released, and its pending bookings are
// cancelled in the same transaction, so the two sides of the fact never
// drift across sweep cycles. All writes are conditional on the state the
// scan observed, so a second sweeper racing this one performs no-ops.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	var expired []slotModel.Slot
	err := s.db.WithContext(ctx).
		Where("status = ? AND locked_until <= ?", slotModel.StatusLocked, now).
		Find(&expired).Error
	if err != nil {
		return 0, fmt.Errorf("scan expired locks: %w", err)
	}

	reclaimed := 0
	for _, sl := range expired {
		var cancelled []bookingModel.Booking
		released := false

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&slotModel.Slot{}).
				Where("id = ? AND status = ? AND locked_until <= ?", sl.ID, slotModel.StatusLocked, now).
				Updates(map[string]any{
					"status":       slotModel.StatusAvailable,
					"locked_until": nil,
					"locked_by":    nil,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Someone else (confirm, cancel or another sweeper)
				// already settled this slot.
				return nil
			}

			if err := tx.Where("slot_id = ? AND status = ?", sl.ID, bookingModel.BookingStatusPending).
				Find(&cancelled).Error; err != nil {
				return err
			}
			if len(cancelled) > 0 {
				if err := tx.Model(&bookingModel.Booking{}).
					Where("slot_id = ? AND status = ?", sl.ID, bookingModel.BookingStatusPending).
					Updates(map[string]any{
						"status":              bookingModel.BookingStatusCancelled,
						"cancelled_at":        now,
						"cancellation_reason": ExpiredLockReason,
					}).Error; err != nil {
					return err
				}
			}

			released = true
			return nil
		})
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to reclaim slot %s", sl.ID), err)
			continue
		}
		if !released {
			continue
		}
		reclaimed++

		// Events only after the transaction committed.
		for _, b := range cancelled {
			metrics.IncBookingCancelled("sweeper")
			s.publisher.Publish("BookingCancelled", map[string]any{
				"booking_id":        b.ID.String(),
				"booking_reference": b.BookingReference,
				"cancelled_at":      now.Format(time.RFC3339),
				"reason":            ExpiredLockReason,
			}, "calendar.booking.cancelled")
		}
		s.publisher.Publish("SlotUnlocked", map[string]any{
			"slot_id":    sl.ID.String(),
			"hub_id":     sl.HubID.String(),
			"start_time": sl.StartTime.Format(time.RFC3339),
			"end_time":   sl.EndTime.Format(time.RFC3339),
		}, "calendar.slot.unlocked")
	}

	s.mu.Lock()
	s.lastRun = now
	s.lastReclaimed = reclaimed
	s.mu.Unlock()

	if reclaimed > 0 {
		metrics.AddSweeperReclaimed(reclaimed)
		logger.Info(fmt.Sprintf("Sweep reclaimed %d expired slot locks", reclaimed))
	}
	return reclaimed, nil
}

// Status reports the sweeper state for the health endpoint.
func (s *Sweeper) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := map[string]any{
		"is_running":       s.running,
		"interval_minutes": int(s.interval.Minutes()),
		"last_reclaimed":   s.lastReclaimed,
	}
	if !s.lastRun.IsZero() {
		status["last_run"] = s.lastRun.Format(time.RFC3339)
	}
	return status
}
