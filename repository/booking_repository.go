package repository

import (
	"context"
	"errors"
	"time"

	bookingModel "guesthouse-booking/models/booking"
	roomModel "guesthouse-booking/models/room"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicate           = errors.New("unique constraint violated")
	ErrReferenceAlreadySet = errors.New("payment reference already set")
)

// OverlapQuery selects bookings of one room, in the given statuses, whose
// [check_in, check_out) intersects [CheckIn, CheckOut).
type OverlapQuery struct {
	RoomID           uint
	CheckIn          time.Time
	CheckOut         time.Time
	Statuses         []bookingModel.BookingStatus
	ExcludeBookingID uint
}

// BookingFilter drives the admin listing
type BookingFilter struct {
	Status  bookingModel.BookingStatus
	RoomID  uint
	From    *time.Time
	To      *time.Time
	Flagged bool
	Page    int
	Size    int
}

// Tx is a transaction-scoped handle. Every write that depends on an
// availability answer must go through the same Tx that produced the answer.
type Tx interface {
	// LockRoom takes the per-room lock every conflict-checked writer serializes on
	LockRoom(ctx context.Context, roomID uint) (*roomModel.Room, error)
	LockBooking(ctx context.Context, id uint) (*bookingModel.Booking, error)
	HasOverlap(ctx context.Context, q OverlapQuery) (bool, error)
	CreateBooking(ctx context.Context, b *bookingModel.Booking) error
	SaveBooking(ctx context.Context, b *bookingModel.Booking) error
	AppendStatusEvent(ctx context.Context, ev *bookingModel.BookingStatusEvent) error
}

// Store is the booking persistence boundary
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	FindRoom(ctx context.Context, id uint) (*roomModel.Room, error)
	FindBookingByID(ctx context.Context, id uint) (*bookingModel.Booking, error)
	FindBookingByPublicID(ctx context.Context, publicID string) (*bookingModel.Booking, error)
	FindBookingByReference(ctx context.Context, reference string) (*bookingModel.Booking, error)
	HasOverlap(ctx context.Context, q OverlapQuery) (bool, error)
	ListOverlapping(ctx context.Context, q OverlapQuery) ([]bookingModel.Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]bookingModel.Booking, int64, error)
	ListStatusEvents(ctx context.Context, bookingID uint) ([]bookingModel.BookingStatusEvent, error)

	// SetPaymentReference stores the gateway handle once; a second call fails
	// with ErrReferenceAlreadySet and a reference owned by another booking
	// fails with ErrDuplicate.
	SetPaymentReference(ctx context.Context, bookingID uint, provider, reference, authorizationURL string) error
	DeleteBooking(ctx context.Context, id uint) error
}

// NormalizePage applies the listing defaults: page 1, 20 per page, at most 100
func NormalizePage(f BookingFilter) (int, int) {
	page, size := f.Page, f.Size
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
