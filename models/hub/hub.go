package hub

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hub represents a bookable test centre. Hubs are reference data: they are
// created and updated by administrators and deactivated rather than deleted.
type Hub struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"type:varchar(255);not null" json:"name"`
	Location string    `gorm:"type:varchar(500);not null" json:"location"`
	Address  *string   `gorm:"type:text" json:"address,omitempty"`
	Timezone string    `gorm:"type:varchar(50);not null;default:UTC" json:"timezone"`

	// No default tag here: GORM skips zero-valued fields that carry one on
	// create, which would flip a struct-created inactive hub back to active.
	// The controller sets the initial value explicitly.
	IsActive bool `gorm:"not null" json:"is_active"`

	// Operating window in "HH:MM" local time, e.g. 09:00 - 17:00.
	OperatingHoursStart string `gorm:"type:varchar(5);not null" json:"operating_hours_start"`
	OperatingHoursEnd   string `gorm:"type:varchar(5);not null" json:"operating_hours_end"`

	// Comma-separated ISO weekdays, Mon=1 .. Sun=7.
	OperatingDays string `gorm:"type:varchar(20);not null;default:1,2,3,4,5" json:"operating_days"`

	// Number of concurrent examination lanes at the hub.
	Capacity    int     `gorm:"not null;default:1" json:"capacity"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	ContactInfo *string `gorm:"type:text" json:"contact_info,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (h *Hub) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
