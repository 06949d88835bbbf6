package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, BookingStatusPending.CanBeConfirmed())
	assert.False(t, BookingStatusConfirmed.CanBeConfirmed())
	assert.False(t, BookingStatusCancelled.CanBeConfirmed())
	assert.False(t, BookingStatusCompleted.CanBeConfirmed())

	assert.True(t, BookingStatusPending.CanBeCancelled())
	assert.True(t, BookingStatusConfirmed.CanBeCancelled())
	assert.False(t, BookingStatusCancelled.CanBeCancelled())
	assert.False(t, BookingStatusCompleted.CanBeCancelled())
}

func TestBookingStatusClassification(t *testing.T) {
	assert.True(t, BookingStatusPending.IsLive())
	assert.True(t, BookingStatusConfirmed.IsLive())
	assert.False(t, BookingStatusCancelled.IsLive())
	assert.False(t, BookingStatusCompleted.IsLive())

	assert.False(t, BookingStatusPending.IsTerminal())
	assert.False(t, BookingStatusConfirmed.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.True(t, BookingStatusCompleted.IsTerminal())
}

func TestBookingStatusIsValid(t *testing.T) {
	for _, s := range GetAllBookingStatuses() {
		assert.True(t, s.IsValid())
	}
	assert.False(t, BookingStatus("locked").IsValid())
	assert.False(t, BookingStatus("").IsValid())
}
