package booking_event

import (
	"context"

	bookingModel "guesthouse-booking/models/booking"
	"guesthouse-booking/repository"
)

// Actors recorded on status events
const (
	ActorGuest   = "guest"
	ActorWebhook = "webhook"
	ActorSystem  = "system"
)

// RecordStatusChange appends an audit row for a booking's status write.
// It must run on the same transaction as the write itself.
func RecordStatusChange(ctx context.Context, tx repository.Tx, b *bookingModel.Booking, from bookingModel.BookingStatus, reason string, createdBy string) error {
	if createdBy == "" {
		createdBy = ActorSystem
	}
	ev := bookingModel.BookingStatusEvent{
		BookingID:  b.ID,
		FromStatus: from,
		ToStatus:   b.Status,
		Reason:     reason,
		CreatedBy:  createdBy,
	}
	return tx.AppendStatusEvent(ctx, &ev)
}
