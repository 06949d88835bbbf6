package booking

import (
	"time"

	slotModel "calendar-booking/models/slot"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking represents a candidate's claim against a slot. Bookings are never
// deleted; they only transition to a terminal status so the audit trail of
// every claim survives.
type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// Foreign key for slot relationship
	SlotID uuid.UUID      `gorm:"type:uuid;not null;index" json:"slot_id"`
	Slot   slotModel.Slot `gorm:"foreignKey:SlotID" json:"-"`

	// Opaque candidate reference issued by the identity service.
	CandidateID uuid.UUID `gorm:"type:uuid;not null;index" json:"candidate_id"`

	Status BookingStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`

	// Human-readable reference code, unique across all bookings.
	BookingReference string `gorm:"type:varchar(50);not null;unique" json:"booking_reference"`

	ContactEmail        string  `gorm:"type:varchar(255);not null" json:"contact_email"`
	ContactPhone        *string `gorm:"type:varchar(20)" json:"contact_phone,omitempty"`
	SpecialRequirements *string `gorm:"type:text" json:"special_requirements,omitempty"`

	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
