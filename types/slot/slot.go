package slot

import (
	"fmt"
	"time"

	slotModel "calendar-booking/models/slot"

	"github.com/google/uuid"
)

// SlotResponse is the API shape of a slot. IsAvailable is computed against
// the wall clock at response time; it is never read from storage.
type SlotResponse struct {
	ID              uuid.UUID            `json:"id"`
	HubID           uuid.UUID            `json:"hub_id"`
	StartTime       time.Time            `json:"start_time"`
	EndTime         time.Time            `json:"end_time"`
	Status          slotModel.SlotStatus `json:"status"`
	MaxCapacity     int                  `json:"max_capacity"`
	CurrentBookings int                  `json:"current_bookings"`
	IsAvailable     bool                 `json:"is_available"`
	Notes           *string              `json:"notes,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// FromModel builds a SlotResponse, computing availability at the given time.
func FromModel(s slotModel.Slot, at time.Time) SlotResponse {
	return SlotResponse{
		ID:              s.ID,
		HubID:           s.HubID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		Status:          s.Status,
		MaxCapacity:     s.MaxCapacity,
		CurrentBookings: s.CurrentBookings,
		IsAvailable:     s.IsUsable(at),
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
	}
}

// SlotGenerateRequest represents the request payload for generating slots
// over a date range from a hub's operating schedule.
type SlotGenerateRequest struct {
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"required"`
	MaxCapacity int    `json:"max_capacity" validate:"omitempty,min=1,max=10"`
}

func (r SlotGenerateRequest) Validate() error {
	if r.StartDate == "" {
		return fmt.Errorf("start_date is required")
	}
	if _, err := time.Parse("2006-01-02", r.StartDate); err != nil {
		return fmt.Errorf("start_date must be in YYYY-MM-DD format")
	}
	if r.EndDate == "" {
		return fmt.Errorf("end_date is required")
	}
	if _, err := time.Parse("2006-01-02", r.EndDate); err != nil {
		return fmt.Errorf("end_date must be in YYYY-MM-DD format")
	}
	if r.MaxCapacity < 0 || r.MaxCapacity > 10 {
		return fmt.Errorf("max_capacity must be between 1 and 10")
	}
	return nil
}
