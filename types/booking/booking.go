package booking

import (
	"fmt"
	"strings"
	"time"

	bookingModel "calendar-booking/models/booking"
	slotTypes "calendar-booking/types/slot"

	"github.com/google/uuid"
)

// BookingCreateRequest represents the request payload for creating a booking
type BookingCreateRequest struct {
	SlotID              string `json:"slot_id" validate:"required,uuid"`
	CandidateID         string `json:"candidate_id" validate:"required,uuid"`
	ContactEmail        string `json:"contact_email" validate:"required,email"`
	ContactPhone        string `json:"contact_phone" validate:"omitempty,max=20"`
	SpecialRequirements string `json:"special_requirements" validate:"omitempty,max=1000"`
}

func (r BookingCreateRequest) Validate() error {
	if r.SlotID == "" {
		return fmt.Errorf("slot_id is required")
	}
	if _, err := uuid.Parse(r.SlotID); err != nil {
		return fmt.Errorf("slot_id must be a valid UUID")
	}
	if r.CandidateID == "" {
		return fmt.Errorf("candidate_id is required")
	}
	if _, err := uuid.Parse(r.CandidateID); err != nil {
		return fmt.Errorf("candidate_id must be a valid UUID")
	}
	if r.ContactEmail == "" {
		return fmt.Errorf("contact_email is required")
	}
	if !strings.Contains(r.ContactEmail, "@") {
		return fmt.Errorf("contact_email must be a valid email address")
	}
	if len(r.SpecialRequirements) > 1000 {
		return fmt.Errorf("special_requirements must be at most 1000 characters")
	}
	return nil
}

// BookingResponse is the API shape of a booking, optionally embedding a
// snapshot of its slot with availability computed at response time.
type BookingResponse struct {
	ID                  uuid.UUID                  `json:"id"`
	SlotID              uuid.UUID                  `json:"slot_id"`
	CandidateID         uuid.UUID                  `json:"candidate_id"`
	Status              bookingModel.BookingStatus `json:"status"`
	BookingReference    string                     `json:"booking_reference"`
	ContactEmail        string                     `json:"contact_email"`
	ContactPhone        *string                    `json:"contact_phone,omitempty"`
	SpecialRequirements *string                    `json:"special_requirements,omitempty"`
	ConfirmedAt         *time.Time                 `json:"confirmed_at,omitempty"`
	CancelledAt         *time.Time                 `json:"cancelled_at,omitempty"`
	CancellationReason  *string                    `json:"cancellation_reason,omitempty"`
	CreatedAt           time.Time                  `json:"created_at"`
	Slot                *slotTypes.SlotResponse    `json:"slot,omitempty"`
}

// FromModel builds a BookingResponse from a booking row. When the slot
// association is loaded its snapshot is embedded.
func FromModel(b bookingModel.Booking, at time.Time) BookingResponse {
	resp := BookingResponse{
		ID:                  b.ID,
		SlotID:              b.SlotID,
		CandidateID:         b.CandidateID,
		Status:              b.Status,
		BookingReference:    b.BookingReference,
		ContactEmail:        b.ContactEmail,
		ContactPhone:        b.ContactPhone,
		SpecialRequirements: b.SpecialRequirements,
		ConfirmedAt:         b.ConfirmedAt,
		CancelledAt:         b.CancelledAt,
		CancellationReason:  b.CancellationReason,
		CreatedAt:           b.CreatedAt,
	}
	if b.Slot.ID != uuid.Nil {
		s := slotTypes.FromModel(b.Slot, at)
		resp.Slot = &s
	}
	return resp
}

// BookingCreateResponse is returned from POST /bookings.
type BookingCreateResponse struct {
	Booking       BookingResponse `json:"booking"`
	LockExpiresAt time.Time       `json:"lock_expires_at"`
	Message       string          `json:"message"`
}
