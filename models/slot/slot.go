package slot

import (
	"time"

	"calendar-booking/models/hub"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Slot represents a reservable unit of time at a hub. The lock fields carry
// the soft-lock metadata used by the reservation engine; whether a slot can
// actually be booked is always computed via IsUsable, never stored.
type Slot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// Foreign key for hub relationship
	HubID uuid.UUID `gorm:"type:uuid;not null;index" json:"hub_id"`
	Hub   hub.Hub   `gorm:"foreignKey:HubID" json:"-"`

	StartTime time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time  `gorm:"not null" json:"end_time"`
	Status    SlotStatus `gorm:"type:varchar(20);not null;default:available;index" json:"status"`

	// LockedUntil is the lock deadline; LockedBy is an opaque session token
	// derived from the pending booking's reference code.
	LockedUntil *time.Time `gorm:"index" json:"locked_until,omitempty"`
	LockedBy    *string    `gorm:"type:varchar(255)" json:"locked_by,omitempty"`

	MaxCapacity     int     `gorm:"not null;default:1" json:"max_capacity"`
	CurrentBookings int     `gorm:"not null;default:0" json:"current_bookings"`
	Notes           *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Slot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsUsable reports whether the slot can accept a new booking at the given
// instant: it must be available, any previous lock must have expired, it
// must have spare capacity and it must start in the future. Lock expiry is
// time-dependent, so this is recomputed at every read rather than stored.
func (s *Slot) IsUsable(at time.Time) bool {
	if s.Status != StatusAvailable {
		return false
	}
	if s.LockedUntil != nil && s.LockedUntil.After(at) {
		return false
	}
	if s.CurrentBookings >= s.MaxCapacity {
		return false
	}
	return s.StartTime.After(at)
}

// LockExpired reports whether the slot holds a lock whose deadline passed.
func (s *Slot) LockExpired(at time.Time) bool {
	return s.Status == StatusLocked && s.LockedUntil != nil && !s.LockedUntil.After(at)
}
