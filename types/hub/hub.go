package hub

import (
	"fmt"

	"calendar-booking/utils"
)

// HubCreateRequest represents the request payload for creating a hub
type HubCreateRequest struct {
	Name                string `json:"name" validate:"required,min=1,max=255"`
	Location            string `json:"location" validate:"required,min=1,max=500"`
	Address             string `json:"address" validate:"omitempty"`
	Timezone            string `json:"timezone" validate:"omitempty,max=50"`
	OperatingHoursStart string `json:"operating_hours_start" validate:"required"`
	OperatingHoursEnd   string `json:"operating_hours_end" validate:"required"`
	OperatingDays       string `json:"operating_days" validate:"omitempty"`
	Capacity            int    `json:"capacity" validate:"omitempty,min=1,max=100"`
	Description         string `json:"description" validate:"omitempty"`
	ContactInfo         string `json:"contact_info" validate:"omitempty"`
}

func (r HubCreateRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Location == "" {
		return fmt.Errorf("location is required")
	}
	if _, _, err := utils.ParseHHMM(r.OperatingHoursStart); err != nil {
		return fmt.Errorf("operating_hours_start: %w", err)
	}
	if _, _, err := utils.ParseHHMM(r.OperatingHoursEnd); err != nil {
		return fmt.Errorf("operating_hours_end: %w", err)
	}
	if r.OperatingDays != "" {
		if _, err := utils.ParseOperatingDays(r.OperatingDays); err != nil {
			return err
		}
	}
	if r.Capacity < 0 || r.Capacity > 100 {
		return fmt.Errorf("capacity must be between 1 and 100")
	}
	return nil
}

// HubUpdateRequest represents the request payload for updating a hub. All
// fields are optional; zero values leave the stored value unchanged.
type HubUpdateRequest struct {
	Name                *string `json:"name"`
	Location            *string `json:"location"`
	Address             *string `json:"address"`
	Timezone            *string `json:"timezone"`
	OperatingHoursStart *string `json:"operating_hours_start"`
	OperatingHoursEnd   *string `json:"operating_hours_end"`
	OperatingDays       *string `json:"operating_days"`
	Capacity            *int    `json:"capacity"`
	Description         *string `json:"description"`
	ContactInfo         *string `json:"contact_info"`
	IsActive            *bool   `json:"is_active"`
}

func (r HubUpdateRequest) Validate() error {
	if r.OperatingHoursStart != nil {
		if _, _, err := utils.ParseHHMM(*r.OperatingHoursStart); err != nil {
			return fmt.Errorf("operating_hours_start: %w", err)
		}
	}
	if r.OperatingHoursEnd != nil {
		if _, _, err := utils.ParseHHMM(*r.OperatingHoursEnd); err != nil {
			return fmt.Errorf("operating_hours_end: %w", err)
		}
	}
	if r.OperatingDays != nil {
		if _, err := utils.ParseOperatingDays(*r.OperatingDays); err != nil {
			return err
		}
	}
	if r.Capacity != nil && (*r.Capacity < 1 || *r.Capacity > 100) {
		return fmt.Errorf("capacity must be between 1 and 100")
	}
	return nil
}
