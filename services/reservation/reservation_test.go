package reservation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"calendar-booking/database"
	bookingModel "calendar-booking/models/booking"
	hubModel "calendar-booking/models/hub"
	slotModel "calendar-booking/models/slot"
	"calendar-booking/services/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedHub(t *testing.T, db *gorm.DB) hubModel.Hub {
	t.Helper()
	h := hubModel.Hub{
		Name:                "Central Test Centre",
		Location:            "Springfield",
		Timezone:            "UTC",
		IsActive:            true,
		OperatingHoursStart: "09:00",
		OperatingHoursEnd:   "17:00",
		OperatingDays:       "1,2,3,4,5",
		Capacity:            2,
	}
	require.NoError(t, db.Create(&h).Error)
	return h
}

func seedSlot(t *testing.T, db *gorm.DB, hubID uuid.UUID, start time.Time, capacity int) slotModel.Slot {
	t.Helper()
	s := slotModel.Slot{
		HubID:       hubID,
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      slotModel.StatusAvailable,
		MaxCapacity: capacity,
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func lockRequest(slotID uuid.UUID) LockRequest {
	return LockRequest{
		SlotID:       slotID,
		CandidateID:  uuid.New(),
		ContactEmail: "candidate@example.com",
	}
}

func TestLockAndReserve(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	rec := events.NewRecorder()
	svc := NewService(db, rec, 15*time.Minute)

	b, deadline, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, bookingModel.BookingStatusPending, b.Status)
	assert.NotEmpty(t, b.BookingReference)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), deadline, 5*time.Second)

	var stored slotModel.Slot
	require.NoError(t, db.First(&stored, "id = ?", sl.ID).Error)
	assert.Equal(t, slotModel.StatusLocked, stored.Status)
	require.NotNil(t, stored.LockedUntil)
	require.NotNil(t, stored.LockedBy)
	assert.Equal(t, "booking_"+b.BookingReference, *stored.LockedBy)

	// Lock and booking events go out in that order after commit.
	evs := rec.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, "calendar.slot.locked", evs[0].RoutingKey)
	assert.Equal(t, "calendar.booking.created", evs[1].RoutingKey)
}

func TestLockAndReserveSecondClaimLoses(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)

	_, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)

	_, _, err = svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Exactly one booking exists.
	var count int64
	require.NoError(t, db.Model(&bookingModel.Booking{}).Where("slot_id = ?", sl.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLockAndReserveConcurrentClaims(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)

	const claimants = 8
	errs := make(chan error, claimants)
	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	won := 0
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	}
	assert.Equal(t, 1, won)

	var count int64
	require.NoError(t, db.Model(&bookingModel.Booking{}).Where("slot_id = ?", sl.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLockAndReserveExpiredLockIsReclaimable(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	// A stale lock whose deadline already passed.
	past := time.Now().UTC().Add(-time.Minute)
	holder := "booking_STALE"
	require.NoError(t, db.Model(&slotModel.Slot{}).Where("id = ?", sl.ID).Updates(map[string]any{
		"locked_until": past,
		"locked_by":    holder,
	}).Error)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)
	b, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)
	assert.Equal(t, bookingModel.BookingStatusPending, b.Status)
}

func TestLockAndReservePastSlot(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(-time.Hour), 1)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)
	_, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	assert.ErrorIs(t, err, ErrSlotInPast)
}

func TestLockAndReserveUnknownSlot(t *testing.T) {
	db := openTestDB(t)
	seedHub(t, db)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)
	_, _, err := svc.LockAndReserve(context.Background(), lockRequest(uuid.New()))
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestConfirm(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	rec := events.NewRecorder()
	svc := NewService(db, rec, 15*time.Minute)

	b, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingModel.BookingStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	var stored slotModel.Slot
	require.NoError(t, db.First(&stored, "id = ?", sl.ID).Error)
	assert.Equal(t, slotModel.StatusBooked, stored.Status)
	assert.Equal(t, 1, stored.CurrentBookings)
	assert.Nil(t, stored.LockedUntil)
	assert.Nil(t, stored.LockedBy)

	assert.Len(t, rec.ByRoutingKey("calendar.booking.confirmed"), 1)
}

func TestConfirmIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	rec := events.NewRecorder()
	svc := NewService(db, rec, 15*time.Minute)

	b, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), b.ID)
	require.NoError(t, err)

	again, err := svc.Confirm(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingModel.BookingStatusConfirmed, again.Status)

	// Occupancy did not double count and the event fired once.
	var stored slotModel.Slot
	require.NoError(t, db.First(&stored, "id = ?", sl.ID).Error)
	assert.Equal(t, 1, stored.CurrentBookings)
	assert.Len(t, rec.ByRoutingKey("calendar.booking.confirmed"), 1)
}

func TestConfirmAfterLockExpiry(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)

	b, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)

	// Push the lock deadline into the past.
	require.NoError(t, db.Model(&slotModel.Slot{}).Where("id = ?", sl.ID).
		Update("locked_until", time.Now().UTC().Add(-time.Minute)).Error)

	_, err = svc.Confirm(context.Background(), b.ID)
	assert.ErrorIs(t, err, ErrBookingExpired)
}

func TestConfirmUnknownBooking(t *testing.T) {
	db := openTestDB(t)
	seedHub(t, db)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)
	_, err := svc.Confirm(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelPendingReleasesSlot(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	rec := events.NewRecorder()
	svc := NewService(db, rec, 15*time.Minute)

	b, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), b.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, bookingModel.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "changed my mind", *cancelled.CancellationReason)

	var stored slotModel.Slot
	require.NoError(t, db.First(&stored, "id = ?", sl.ID).Error)
	assert.Equal(t, slotModel.StatusAvailable, stored.Status)
	assert.Nil(t, stored.LockedUntil)

	assert.Len(t, rec.ByRoutingKey("calendar.booking.cancelled"), 1)
	assert.Len(t, rec.ByRoutingKey("calendar.slot.unlocked"), 1)

	// The slot is immediately claimable again.
	_, _, err = svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	assert.NoError(t, err)
}

func TestCancelConfirmedReturnsCapacity(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)

	b, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), b.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), b.ID, "cannot attend")
	require.NoError(t, err)

	var stored slotModel.Slot
	require.NoError(t, db.First(&stored, "id = ?", sl.ID).Error)
	assert.Equal(t, slotModel.StatusAvailable, stored.Status)
	assert.Equal(t, 0, stored.CurrentBookings)
}

func TestCancelIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	rec := events.NewRecorder()
	svc := NewService(db, rec, 15*time.Minute)

	b, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), b.ID, "first")
	require.NoError(t, err)

	again, err := svc.Cancel(context.Background(), b.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, bookingModel.BookingStatusCancelled, again.Status)
	require.NotNil(t, again.CancellationReason)
	assert.Equal(t, "first", *again.CancellationReason)

	// No duplicate cancellation events.
	assert.Len(t, rec.ByRoutingKey("calendar.booking.cancelled"), 1)
}

func TestCancelCompletedBookingFails(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)

	b, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), b.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&bookingModel.Booking{}).Where("id = ?", b.ID).
		Update("status", bookingModel.BookingStatusCompleted).Error)

	_, err = svc.Cancel(context.Background(), b.ID, "too late")
	assert.ErrorIs(t, err, ErrBookingFinalized)
}

func TestMultiCapacitySlot(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 2)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)

	// Confirm fills one of two capacity units and marks the slot booked.
	b1, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), b1.ID)
	require.NoError(t, err)

	var stored slotModel.Slot
	require.NoError(t, db.First(&stored, "id = ?", sl.ID).Error)
	assert.Equal(t, 1, stored.CurrentBookings)
	assert.Equal(t, slotModel.StatusBooked, stored.Status)
}

func TestBookingLookups(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(48*time.Hour), 1)

	svc := NewService(db, events.NewRecorder(), 15*time.Minute)

	req := lockRequest(sl.ID)
	b, _, err := svc.LockAndReserve(context.Background(), req)
	require.NoError(t, err)

	byID, err := svc.BookingByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BookingReference, byID.BookingReference)
	assert.Equal(t, sl.ID, byID.Slot.ID)

	byRef, err := svc.BookingByReference(context.Background(), b.BookingReference)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byRef.ID)

	list, err := svc.BookingsByCandidate(context.Background(), req.CandidateID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	_, err = svc.BookingByReference(context.Background(), "BK000000XXXXXX")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestFullBookingFlow(t *testing.T) {
	db := openTestDB(t)
	h := seedHub(t, db)
	sl := seedSlot(t, db, h.ID, time.Now().UTC().Add(72*time.Hour), 1)

	rec := events.NewRecorder()
	svc := NewService(db, rec, 15*time.Minute)

	// Candidate A claims the slot; candidate B loses the race.
	a, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)
	_, _, err = svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.ErrorIs(t, err, ErrSlotUnavailable)

	// A confirms within the window; the slot is booked for good.
	_, err = svc.Confirm(context.Background(), a.ID)
	require.NoError(t, err)
	_, _, err = svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.ErrorIs(t, err, ErrSlotUnavailable)

	// A cancels; B succeeds on the retry.
	_, err = svc.Cancel(context.Background(), a.ID, "schedule conflict")
	require.NoError(t, err)
	bB, _, err := svc.LockAndReserve(context.Background(), lockRequest(sl.ID))
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), bB.ID)
	require.NoError(t, err)

	// Both bookings survive as audit records.
	var count int64
	require.NoError(t, db.Model(&bookingModel.Booking{}).Where("slot_id = ?", sl.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
