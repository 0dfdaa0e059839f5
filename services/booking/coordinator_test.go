package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"guesthouse-booking/config"
	bookingModel "guesthouse-booking/models/booking"
	roomModel "guesthouse-booking/models/room"
	"guesthouse-booking/repository"
	"guesthouse-booking/services/availability"
	"guesthouse-booking/services/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_fake"

// fakeGateway signs events the way Paystack does and hands out sequential references
type fakeGateway struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (g *fakeGateway) Name() string            { return "fake" }
func (g *fakeGateway) SignatureHeader() string { return "x-fake-signature" }

func (g *fakeGateway) Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail != nil {
		return nil, g.fail
	}
	ref := fmt.Sprintf("ref_%d_%s", g.calls, req.BookingPublicID)
	return &payment.Authorization{AuthorizationURL: "https://pay.test/" + ref, Reference: ref}, nil
}

func (g *fakeGateway) ParseEvent(signature string, payload []byte) (*payment.Event, error) {
	if !payment.VerifySignature(webhookSecret, signature, payload) {
		return nil, payment.ErrInvalidSignature
	}
	var body struct {
		Event     string `json:"event"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, payment.ErrMalformedEvent
	}
	ev := &payment.Event{Reference: body.Reference, AmountMinor: body.Amount, ProviderType: body.Event, Type: payment.EventIgnored}
	if body.Event == "charge.success" {
		ev.Type = payment.EventChargeSuccess
	}
	return ev, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func webhook(event, reference string) (string, []byte) {
	payload := []byte(fmt.Sprintf(`{"event":%q,"reference":%q}`, event, reference))
	return payment.Sign(webhookSecret, payload), payload
}

func jan(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store   *repository.MemoryStore
	gateway *fakeGateway
	coord   *Coordinator
	room    *roomModel.Room
}

func newFixture(t *testing.T, mode string, price float64) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	room := store.PutRoom(roomModel.Room{Name: "Garden Room", PricePerNight: price, Capacity: 3, IsActive: true})
	gw := &fakeGateway{}
	coord := NewCoordinator(store, availability.NewChecker(), gw, Options{
		Mode:     mode,
		Currency: "NGN",
		Now:      func() time.Time { return jan(1) },
	})
	return &fixture{store: store, gateway: gw, coord: coord, room: room}
}

func (f *fixture) input(in, out int) CreateBookingInput {
	return CreateBookingInput{
		RoomID:     f.room.ID,
		CheckIn:    jan(in),
		CheckOut:   jan(out),
		GuestName:  "Ada Guest",
		GuestEmail: "ada@example.com",
		GuestPhone: "+2348031234567",
		Adults:     2,
	}
}

func (f *fixture) booking(t *testing.T, publicID string) *bookingModel.Booking {
	t.Helper()
	b, err := f.store.FindBookingByPublicID(context.Background(), publicID)
	require.NoError(t, err)
	return b
}

// assertNoPaidOverlap checks the core invariant over the whole store
func assertNoPaidOverlap(t *testing.T, store *repository.MemoryStore) {
	t.Helper()
	var paid []bookingModel.Booking
	for _, b := range store.AllBookings() {
		if b.Status == bookingModel.BookingStatusPaid {
			paid = append(paid, b)
		}
	}
	for i := range paid {
		for j := i + 1; j < len(paid); j++ {
			if paid[i].RoomID != paid[j].RoomID {
				continue
			}
			assert.False(t, availability.Overlaps(paid[i].CheckIn, paid[i].CheckOut, paid[j].CheckIn, paid[j].CheckOut),
				"paid bookings %s and %s overlap", paid[i].PublicID, paid[j].PublicID)
		}
	}
}

func TestInitializePayment_ComputesAmountAndHolds(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 50)
	ctx := context.Background()

	started, err := f.coord.InitializePayment(ctx, f.input(10, 13))
	require.NoError(t, err)
	assert.Equal(t, int64(15000), started.AmountMinor)
	assert.Equal(t, "NGN", started.Currency)
	assert.NotEmpty(t, started.Reference)
	assert.NotEmpty(t, started.AuthorizationURL)

	b := f.booking(t, started.PublicID)
	assert.Equal(t, bookingModel.BookingStatusPending, b.Status)
	require.NotNil(t, b.PaymentReference)
	assert.Equal(t, started.Reference, *b.PaymentReference)
	assert.Equal(t, "fake", b.PaymentProvider)

	events, err := f.store.ListStatusEvents(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, bookingModel.BookingStatusPending, events[0].ToStatus)
}

func TestInitializePayment_PartialDayRoundsUp(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 50)
	ctx := context.Background()

	in := f.input(10, 12)
	in.CheckOut = jan(12).Add(3 * time.Hour)
	started, err := f.coord.InitializePayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), started.AmountMinor, "a partial day is charged as a full night")

	b := f.booking(t, started.PublicID)
	assert.Equal(t, int64(3), b.Nights())
	assert.Equal(t, in.CheckOut, b.CheckOut.UTC())
}

func TestInitializePayment_PendingDoesNotBlock(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	_, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)
	_, err = f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err, "a pending hold does not occupy the room")
}

func TestInitializePayment_ConflictWithPaid(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	first, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)
	sig, payload := webhook("charge.success", first.Reference)
	_, err = f.coord.ReconcilePayment(ctx, sig, payload)
	require.NoError(t, err)

	before := len(f.store.AllBookings())
	_, err = f.coord.InitializePayment(ctx, f.input(11, 13))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Len(t, f.store.AllBookings(), before, "nothing persisted on conflict")

	_, err = f.coord.InitializePayment(ctx, f.input(12, 14))
	assert.NoError(t, err, "back-to-back is permitted")
}

func TestInitializePayment_GatewayFailureKeepsHold(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()
	f.gateway.fail = errors.New("connection reset")

	_, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.ErrorIs(t, err, ErrIntegrationFailure)

	var be *Error
	require.True(t, errors.As(err, &be))
	require.NotEmpty(t, be.BookingID)
	assert.NotContains(t, be.PublicMessage(), "connection reset")

	b := f.booking(t, be.BookingID)
	assert.Equal(t, bookingModel.BookingStatusPending, b.Status)
	assert.Nil(t, b.PaymentReference)

	f.gateway.fail = nil
	retried, err := f.coord.RetryPayment(ctx, be.BookingID)
	require.NoError(t, err)
	assert.NotEmpty(t, retried.Reference)

	again, err := f.coord.RetryPayment(ctx, be.BookingID)
	require.NoError(t, err)
	assert.Equal(t, retried.Reference, again.Reference)
	assert.Equal(t, retried.AuthorizationURL, again.AuthorizationURL)
	assert.Equal(t, 2, f.gateway.callCount(), "stored handle is reused")
}

func TestRetryPayment_NotPending(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	started, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)
	sig, payload := webhook("charge.success", started.Reference)
	_, err = f.coord.ReconcilePayment(ctx, sig, payload)
	require.NoError(t, err)

	_, err = f.coord.RetryPayment(ctx, started.PublicID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.coord.RetryPayment(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidation_NoTransactionOpened(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *CreateBookingInput)
	}{
		{"inverted range", func(in *CreateBookingInput) { in.CheckIn, in.CheckOut = jan(12), jan(10) }},
		{"zero length", func(in *CreateBookingInput) { in.CheckOut = in.CheckIn }},
		{"in the past", func(in *CreateBookingInput) { in.CheckIn = jan(1).AddDate(0, 0, -3) }},
		{"missing name", func(in *CreateBookingInput) { in.GuestName = "  " }},
		{"bad email", func(in *CreateBookingInput) { in.GuestEmail = "nope" }},
		{"no adults", func(in *CreateBookingInput) { in.Adults = 0 }},
		{"over capacity", func(in *CreateBookingInput) { in.Adults, in.Children = 2, 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(10, 12)
			tt.mutate(&in)
			_, err := f.coord.InitializePayment(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
			_, err = f.coord.CreateBooking(ctx, in, "admin")
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, f.store.AllBookings())
	assert.Zero(t, f.gateway.callCount())
}

func TestCreateBooking_UnknownAndInactiveRoom(t *testing.T) {
	f := newFixture(t, config.ModeDirectConfirm, 100)
	ctx := context.Background()

	in := f.input(10, 12)
	in.RoomID = 999
	_, err := f.coord.CreateBooking(ctx, in, "guest")
	assert.ErrorIs(t, err, ErrNotFound)

	closed := f.store.PutRoom(roomModel.Room{Name: "Closed", PricePerNight: 10, Capacity: 2, IsActive: false})
	in.RoomID = closed.ID
	_, err = f.coord.CreateBooking(ctx, in, "guest")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateBooking_DirectConfirm(t *testing.T) {
	f := newFixture(t, config.ModeDirectConfirm, 100)
	ctx := context.Background()

	b, err := f.coord.CreateBooking(ctx, f.input(10, 12), "guest")
	require.NoError(t, err)
	assert.Equal(t, bookingModel.BookingStatusPaid, b.Status)
	assert.Equal(t, int64(20000), b.AmountMinor)

	_, err = f.coord.CreateBooking(ctx, f.input(11, 12), "guest")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.coord.CreateBooking(ctx, f.input(12, 14), "guest")
	assert.NoError(t, err, "back-to-back is permitted")

	_, err = f.coord.CreateBooking(ctx, f.input(8, 10), "guest")
	assert.NoError(t, err, "back-to-back is permitted")

	assertNoPaidOverlap(t, f.store)
}

func TestCreateBooking_DirectConfirmConflictsWithPending(t *testing.T) {
	f := newFixture(t, config.ModeDirectConfirm, 100)
	ctx := context.Background()

	_, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)

	_, err = f.coord.CreateBooking(ctx, f.input(11, 13), "guest")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateBooking_ConcurrentSameRange(t *testing.T) {
	f := newFixture(t, config.ModeDirectConfirm, 100)
	ctx := context.Background()

	const workers = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := f.input(10+i%3, 13)
			_, err := f.coord.CreateBooking(ctx, in, "guest")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assertNoPaidOverlap(t, f.store)
}

func TestReconcile_ConcurrentWebhooksForOverlappingHolds(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	const holds = 20
	refs := make([]string, 0, holds)
	for i := 0; i < holds; i++ {
		started, err := f.coord.InitializePayment(ctx, f.input(10+i%2, 12+i%3))
		require.NoError(t, err)
		refs = append(refs, started.Reference)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		paid int
		lost int
	)
	for _, ref := range refs {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			sig, payload := webhook("charge.success", ref)
			b, err := f.coord.ReconcilePayment(ctx, sig, payload)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				paid++
			case errors.Is(err, ErrRaceLost):
				lost++
				assert.NotNil(t, b)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(ref)
	}
	wg.Wait()

	assert.Equal(t, 1, paid, "every hold overlaps jan 11, so exactly one wins")
	assert.Equal(t, holds-1, lost)
	assertNoPaidOverlap(t, f.store)

	flagged, total, err := f.coord.ListFlagged(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(holds-1), total)
	for _, b := range flagged {
		assert.Equal(t, bookingModel.BookingStatusFailed, b.Status)
		assert.True(t, b.NeedsReconciliation)
	}
}

func TestReconcile_RaceLost(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	a, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)
	b, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)

	sig, payload := webhook("charge.success", a.Reference)
	won, err := f.coord.ReconcilePayment(ctx, sig, payload)
	require.NoError(t, err)
	assert.Equal(t, bookingModel.BookingStatusPaid, won.Status)

	sig, payload = webhook("charge.success", b.Reference)
	lostBooking, err := f.coord.ReconcilePayment(ctx, sig, payload)
	require.ErrorIs(t, err, ErrRaceLost)
	require.NotNil(t, lostBooking)
	assert.Equal(t, b.PublicID, lostBooking.PublicID)

	stored := f.booking(t, b.PublicID)
	assert.Equal(t, bookingModel.BookingStatusFailed, stored.Status)
	assert.True(t, stored.NeedsReconciliation)
	require.NotNil(t, stored.FlagReason)
	assert.Equal(t, bookingModel.BookingStatusPaid, f.booking(t, a.PublicID).Status)

	// a redelivery changes nothing and reports the same outcome
	eventsBefore, err := f.store.ListStatusEvents(ctx, stored.ID)
	require.NoError(t, err)
	_, err = f.coord.ReconcilePayment(ctx, sig, payload)
	assert.ErrorIs(t, err, ErrRaceLost)
	eventsAfter, err := f.store.ListStatusEvents(ctx, stored.ID)
	require.NoError(t, err)
	assert.Len(t, eventsAfter, len(eventsBefore))
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	started, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)
	sig, payload := webhook("charge.success", started.Reference)

	first, err := f.coord.ReconcilePayment(ctx, sig, payload)
	require.NoError(t, err)
	second, err := f.coord.ReconcilePayment(ctx, sig, payload)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, bookingModel.BookingStatusPaid, second.Status)

	events, err := f.store.ListStatusEvents(ctx, first.ID)
	require.NoError(t, err)
	paidEvents := 0
	for _, ev := range events {
		if ev.ToStatus == bookingModel.BookingStatusPaid {
			paidEvents++
		}
	}
	assert.Equal(t, 1, paidEvents)
}

func TestReconcile_SignatureEnforced(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	started, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)
	_, payload := webhook("charge.success", started.Reference)

	_, err = f.coord.ReconcilePayment(ctx, payment.Sign("wrong-secret", payload), payload)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = 'X'
	_, err = f.coord.ReconcilePayment(ctx, payment.Sign(webhookSecret, payload), tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	assert.Equal(t, bookingModel.BookingStatusPending, f.booking(t, started.PublicID).Status)
}

func TestReconcile_UnknownReferenceAndIgnoredEvents(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	sig, payload := webhook("charge.success", "ref_nobody")
	_, err := f.coord.ReconcilePayment(ctx, sig, payload)
	assert.ErrorIs(t, err, ErrUnknownReference)

	sig, payload = webhook("transfer.success", "ref_nobody")
	b, err := f.coord.ReconcilePayment(ctx, sig, payload)
	assert.NoError(t, err)
	assert.Nil(t, b)
}

func TestReconcile_CancelledBooking(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	started, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)
	held := f.booking(t, started.PublicID)
	_, err = f.coord.CancelBooking(ctx, held.ID, "", "admin")
	require.NoError(t, err)

	sig, payload := webhook("charge.success", started.Reference)
	b, err := f.coord.ReconcilePayment(ctx, sig, payload)
	require.ErrorIs(t, err, ErrRaceLost)
	require.NotNil(t, b)

	stored := f.booking(t, started.PublicID)
	assert.Equal(t, bookingModel.BookingStatusCancelled, stored.Status)
	assert.True(t, stored.NeedsReconciliation)
}

func TestGetByPublicID_Opaque(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	started, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)

	pb, err := f.coord.GetByPublicID(ctx, started.PublicID)
	require.NoError(t, err)
	raw, err := json.Marshal(pb)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, "payment_reference")
	assert.NotContains(t, fields, "guest_email")
	assert.NotContains(t, fields, "guest_phone")
	assert.NotContains(t, string(raw), started.Reference)
	assert.Equal(t, started.PublicID, fields["public_id"])

	held := f.booking(t, started.PublicID)
	_, err = f.coord.GetByPublicID(ctx, fmt.Sprint(held.ID))
	assert.ErrorIs(t, err, ErrNotFound, "internal ids do not resolve")
}

func TestCheckAvailabilityAndCalendar(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	ctx := context.Background()

	started, err := f.coord.InitializePayment(ctx, f.input(10, 12))
	require.NoError(t, err)

	ok, err := f.coord.CheckAvailability(ctx, f.room.ID, jan(10), jan(12))
	require.NoError(t, err)
	assert.True(t, ok, "pending hold is not occupying")

	sig, payload := webhook("charge.success", started.Reference)
	_, err = f.coord.ReconcilePayment(ctx, sig, payload)
	require.NoError(t, err)

	ok, err = f.coord.CheckAvailability(ctx, f.room.ID, jan(11), jan(15))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.coord.CheckAvailability(ctx, f.room.ID, jan(15), jan(11))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.coord.CheckAvailability(ctx, 999, jan(11), jan(15))
	assert.ErrorIs(t, err, ErrNotFound)

	ranges, err := f.coord.Calendar(ctx, f.room.ID, jan(20))
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, jan(10), ranges[0].CheckIn)

	ranges, err = f.coord.Calendar(ctx, f.room.ID, jan(1).AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, ranges)
}

func TestCancelAndDelete(t *testing.T) {
	f := newFixture(t, config.ModeDirectConfirm, 100)
	ctx := context.Background()

	b, err := f.coord.CreateBooking(ctx, f.input(10, 12), "admin")
	require.NoError(t, err)

	cancelled, err := f.coord.CancelBooking(ctx, b.ID, "guest called", "admin")
	require.NoError(t, err)
	assert.Equal(t, bookingModel.BookingStatusCancelled, cancelled.Status)

	_, events, err := f.coord.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "guest called", events[1].Reason)

	// cancelled bookings free the dates
	_, err = f.coord.CreateBooking(ctx, f.input(10, 12), "admin")
	require.NoError(t, err)

	require.NoError(t, f.coord.DeleteBooking(ctx, b.ID, "admin"))
	assert.ErrorIs(t, f.coord.DeleteBooking(ctx, b.ID, "admin"), ErrNotFound)
	_, err = f.coord.CancelBooking(ctx, b.ID, "", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBookings_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, config.ModePayLater, 100)
	_, _, err := f.coord.ListBookings(context.Background(), repository.BookingFilter{Status: "BOGUS"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("outer: %w", &Error{Kind: KindConflict, Message: "taken"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrRaceLost)

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "taken", be.PublicMessage())
	assert.Equal(t, publicMessages[KindRaceLost], (&Error{Kind: KindRaceLost}).PublicMessage())
}
