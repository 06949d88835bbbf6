package booking

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func (bs BookingStatus) String() string {
	return string(bs)
}

func (bs BookingStatus) IsValid() bool {
	switch bs {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the booking can no longer change state.
func (bs BookingStatus) IsTerminal() bool {
	return bs == BookingStatusCancelled || bs == BookingStatusCompleted
}

// IsLive returns true while the booking still counts against slot capacity.
func (bs BookingStatus) IsLive() bool {
	return bs == BookingStatusPending || bs == BookingStatusConfirmed
}

// CanBeConfirmed returns true if the booking may transition to confirmed.
func (bs BookingStatus) CanBeConfirmed() bool {
	return bs == BookingStatusPending
}

// CanBeCancelled returns true if the booking may transition to cancelled.
func (bs BookingStatus) CanBeCancelled() bool {
	return bs == BookingStatusPending || bs == BookingStatusConfirmed
}

// GetAllBookingStatuses returns all valid booking statuses.
func GetAllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusCancelled,
		BookingStatusCompleted,
	}
}
