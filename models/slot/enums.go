package slot

// SlotStatus is the stored availability state of a slot.
type SlotStatus string

const (
	StatusAvailable   SlotStatus = "available"
	StatusLocked      SlotStatus = "locked"
	StatusBooked      SlotStatus = "booked"
	StatusUnavailable SlotStatus = "unavailable"
)

func (ss SlotStatus) String() string {
	return string(ss)
}

func (ss SlotStatus) IsValid() bool {
	switch ss {
	case StatusAvailable, StatusLocked, StatusBooked, StatusUnavailable:
		return true
	default:
		return false
	}
}

// GetAllSlotStatuses returns all valid slot statuses.
func GetAllSlotStatuses() []SlotStatus {
	return []SlotStatus{
		StatusAvailable,
		StatusLocked,
		StatusBooked,
		StatusUnavailable,
	}
}
