package availability

import (
	"context"
	"errors"
	"time"

	bookingModel "guesthouse-booking/models/booking"
	"guesthouse-booking/repository"
)

// ErrInvalidRange is returned for zero-length or inverted ranges
var ErrInvalidRange = errors.New("check_in must be before check_out")

// Querier is the read side of a store or transaction handle
type Querier interface {
	HasOverlap(ctx context.Context, q repository.OverlapQuery) (bool, error)
}

// Options narrows an availability question
type Options struct {
	// Statuses is the conflict set; empty means occupying statuses only
	Statuses         []bookingModel.BookingStatus
	ExcludeBookingID uint
}

// Checker answers whether a room is free for a date range. It never writes.
type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// IsAvailable reports whether no booking in the conflict set overlaps
// [checkIn, checkOut). Pass the transaction handle of the write that
// depends on the answer.
func (c *Checker) IsAvailable(ctx context.Context, q Querier, roomID uint, checkIn, checkOut time.Time, opts Options) (bool, error) {
	if !checkIn.Before(checkOut) {
		return false, ErrInvalidRange
	}
	statuses := opts.Statuses
	if len(statuses) == 0 {
		statuses = bookingModel.OccupyingStatuses()
	}
	conflict, err := q.HasOverlap(ctx, repository.OverlapQuery{
		RoomID:           roomID,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Statuses:         statuses,
		ExcludeBookingID: opts.ExcludeBookingID,
	})
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

// Overlaps is the half-open interval rule: [aIn, aOut) and [bIn, bOut)
// intersect iff aIn < bOut and bIn < aOut.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && bIn.Before(aOut)
}
