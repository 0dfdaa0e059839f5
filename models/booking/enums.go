package booking

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusPaid      BookingStatus = "PAID"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusFailed    BookingStatus = "FAILED"
)

// Helper methods for BookingStatus
func (bs BookingStatus) String() string {
	return string(bs)
}

func (bs BookingStatus) IsValid() bool {
	switch bs {
	case BookingStatusPending, BookingStatusPaid, BookingStatusCancelled, BookingStatusFailed:
		return true
	default:
		return false
	}
}

// IsOccupying returns true if the booking counts against the room's calendar
func (bs BookingStatus) IsOccupying() bool {
	return bs == BookingStatusPaid
}

// IsTerminal returns true if no further payment transition is possible
func (bs BookingStatus) IsTerminal() bool {
	return bs == BookingStatusCancelled || bs == BookingStatusFailed
}

// GetAllBookingStatuses returns all valid booking statuses
func GetAllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusPaid,
		BookingStatusCancelled,
		BookingStatusFailed,
	}
}

// OccupyingStatuses is the conflict set for the pay-later flow
func OccupyingStatuses() []BookingStatus {
	return []BookingStatus{BookingStatusPaid}
}

// ActiveStatuses is the conflict set for the direct-confirm flow
func ActiveStatuses() []BookingStatus {
	return []BookingStatus{BookingStatusPending, BookingStatusPaid}
}
