package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsUsable(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(48 * time.Hour)
	pastDeadline := now.Add(-time.Minute)
	liveDeadline := now.Add(10 * time.Minute)

	tests := []struct {
		name string
		slot Slot
		want bool
	}{
		{
			name: "available future slot",
			slot: Slot{Status: StatusAvailable, StartTime: future, MaxCapacity: 1},
			want: true,
		},
		{
			name: "locked slot",
			slot: Slot{Status: StatusLocked, StartTime: future, MaxCapacity: 1, LockedUntil: &liveDeadline},
			want: false,
		},
		{
			name: "booked slot",
			slot: Slot{Status: StatusBooked, StartTime: future, MaxCapacity: 1},
			want: false,
		},
		{
			name: "unavailable slot",
			slot: Slot{Status: StatusUnavailable, StartTime: future, MaxCapacity: 1},
			want: false,
		},
		{
			name: "available but live lock deadline lingers",
			slot: Slot{Status: StatusAvailable, StartTime: future, MaxCapacity: 1, LockedUntil: &liveDeadline},
			want: false,
		},
		{
			name: "available with expired lock deadline",
			slot: Slot{Status: StatusAvailable, StartTime: future, MaxCapacity: 1, LockedUntil: &pastDeadline},
			want: true,
		},
		{
			name: "at capacity",
			slot: Slot{Status: StatusAvailable, StartTime: future, MaxCapacity: 2, CurrentBookings: 2},
			want: false,
		},
		{
			name: "spare capacity",
			slot: Slot{Status: StatusAvailable, StartTime: future, MaxCapacity: 2, CurrentBookings: 1},
			want: true,
		},
		{
			name: "slot in the past",
			slot: Slot{Status: StatusAvailable, StartTime: now.Add(-time.Hour), MaxCapacity: 1},
			want: false,
		},
		{
			name: "slot starting exactly now",
			slot: Slot{Status: StatusAvailable, StartTime: now, MaxCapacity: 1},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.slot.IsUsable(now))
		})
	}
}

func TestLockExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(10 * time.Minute)

	assert.True(t, (&Slot{Status: StatusLocked, LockedUntil: &past}).LockExpired(now))
	assert.False(t, (&Slot{Status: StatusLocked, LockedUntil: &future}).LockExpired(now))
	assert.False(t, (&Slot{Status: StatusLocked}).LockExpired(now))
	assert.False(t, (&Slot{Status: StatusAvailable, LockedUntil: &past}).LockExpired(now))
}

func TestSlotStatusIsValid(t *testing.T) {
	for _, s := range GetAllSlotStatuses() {
		assert.True(t, s.IsValid())
	}
	assert.False(t, SlotStatus("pending").IsValid())
	assert.False(t, SlotStatus("").IsValid())
}
