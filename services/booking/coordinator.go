package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guesthouse-booking/config"
	"guesthouse-booking/logger"
	bookingModel "guesthouse-booking/models/booking"
	roomModel "guesthouse-booking/models/room"
	"guesthouse-booking/repository"
	"guesthouse-booking/services/availability"
	"guesthouse-booking/services/booking_event"
	"guesthouse-booking/services/payment"
	"guesthouse-booking/utils"
)

// Options configures a Coordinator
type Options struct {
	// Mode is config.ModePayLater or config.ModeDirectConfirm
	Mode        string
	Currency    string
	IDGenerator func() string
	Now         func() time.Time
}

// Coordinator owns every write to a booking's status and payment reference
type Coordinator struct {
	store   repository.Store
	checker *availability.Checker
	gateway payment.Gateway
	opts    Options
}

func NewCoordinator(store repository.Store, checker *availability.Checker, gateway payment.Gateway, opts Options) *Coordinator {
	if opts.Mode == "" {
		opts.Mode = config.ModePayLater
	}
	if opts.Currency == "" {
		opts.Currency = "NGN"
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = utils.NewPublicID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if checker == nil {
		checker = availability.NewChecker()
	}
	return &Coordinator{store: store, checker: checker, gateway: gateway, opts: opts}
}

// Mode returns the configured deployment mode
func (c *Coordinator) Mode() string {
	return c.opts.Mode
}

// conflictSet is what a new confirmed booking must not overlap
func (c *Coordinator) conflictSet() []bookingModel.BookingStatus {
	if c.opts.Mode == config.ModeDirectConfirm {
		return bookingModel.ActiveStatuses()
	}
	return bookingModel.OccupyingStatuses()
}

// CreateBookingInput is a guest's request for one room over [CheckIn, CheckOut)
type CreateBookingInput struct {
	RoomID     uint      `json:"room_id" validate:"required"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	GuestName  string    `json:"guest_name" validate:"required"`
	GuestEmail string    `json:"guest_email" validate:"required,email"`
	GuestPhone string    `json:"guest_phone" validate:"omitempty,phone"`
	Adults     int       `json:"adults" validate:"gte=1"`
	Children   int       `json:"children" validate:"gte=0"`
}

// PaymentInit is returned to the guest to complete payment on the provider's page
type PaymentInit struct {
	PublicID         string `json:"public_id"`
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"-"`
	AmountMinor      int64  `json:"amount_minor"`
	Currency         string `json:"currency"`
}

// CalendarRange is an occupied range shown on the public calendar
type CalendarRange struct {
	CheckIn  time.Time                  `json:"check_in"`
	CheckOut time.Time                  `json:"check_out"`
	Status   bookingModel.BookingStatus `json:"status"`
}

func (c *Coordinator) validate(in *CreateBookingInput) error {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.GuestEmail = strings.TrimSpace(in.GuestEmail)
	in.GuestPhone = strings.TrimSpace(in.GuestPhone)

	if err := utils.ValidateStruct(in); err != nil {
		return validationError(err.Error())
	}
	switch {
	case in.CheckIn.IsZero() || in.CheckOut.IsZero():
		return validationError("check_in and check_out are required")
	case !in.CheckIn.Before(in.CheckOut):
		return validationError("check_in must be before check_out")
	case in.CheckIn.Before(utils.StartOfDay(c.opts.Now())):
		return validationError("check_in cannot be in the past")
	}
	return nil
}

func checkRoom(r *roomModel.Room, in CreateBookingInput) error {
	if !r.IsActive {
		return validationError("room is not available for booking")
	}
	if r.Capacity > 0 && in.Adults+in.Children > r.Capacity {
		return validationError(fmt.Sprintf("room sleeps at most %d guests", r.Capacity))
	}
	return nil
}

func lockRoom(ctx context.Context, tx repository.Tx, roomID uint) (*roomModel.Room, error) {
	r, err := tx.LockRoom(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("room not found")
	}
	return r, err
}

func (c *Coordinator) newBooking(in CreateBookingInput, r *roomModel.Room, status bookingModel.BookingStatus) *bookingModel.Booking {
	return &bookingModel.Booking{
		PublicID:    c.opts.IDGenerator(),
		RoomID:      r.ID,
		CheckIn:     in.CheckIn,
		CheckOut:    in.CheckOut,
		GuestName:   in.GuestName,
		GuestEmail:  in.GuestEmail,
		GuestPhone:  in.GuestPhone,
		Adults:      in.Adults,
		Children:    in.Children,
		Status:      status,
		AmountMinor: bookingModel.NightsBetween(in.CheckIn, in.CheckOut) * r.PriceMinor(),
		Currency:    c.opts.Currency,
	}
}

// CreateBooking confirms a booking immediately, without payment. It backs the
// public route in direct-confirm mode and admin walk-ins in either mode.
func (c *Coordinator) CreateBooking(ctx context.Context, in CreateBookingInput, actor string) (*bookingModel.Booking, error) {
	if err := c.validate(&in); err != nil {
		return nil, err
	}

	var created *bookingModel.Booking
	err := c.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := lockRoom(ctx, tx, in.RoomID)
		if err != nil {
			return err
		}
		if err := checkRoom(r, in); err != nil {
			return err
		}

		ok, err := c.checker.IsAvailable(ctx, tx, r.ID, in.CheckIn, in.CheckOut, availability.Options{Statuses: c.conflictSet()})
		if err != nil {
			return err
		}
		if !ok {
			return &Error{Kind: KindConflict}
		}

		b := c.newBooking(in, r, bookingModel.BookingStatusPaid)
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := booking_event.RecordStatusChange(ctx, tx, b, "", "confirmed on creation", actor); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, c.wrap(err, "create booking")
	}

	logger.Success(fmt.Sprintf("Booking %s confirmed for room %d (%s to %s)",
		created.PublicID, created.RoomID, created.CheckIn.Format(utils.DateLayout), created.CheckOut.Format(utils.DateLayout)))
	return created, nil
}

// InitializePayment places a PENDING hold and starts a hosted payment. The
// hold does not block other guests; only a confirmed payment does.
func (c *Coordinator) InitializePayment(ctx context.Context, in CreateBookingInput) (*PaymentInit, error) {
	if c.gateway == nil {
		return nil, &Error{Kind: KindIntegrationFailure, Err: errors.New("no payment gateway configured")}
	}
	if err := c.validate(&in); err != nil {
		return nil, err
	}

	var pending *bookingModel.Booking
	err := c.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := lockRoom(ctx, tx, in.RoomID)
		if err != nil {
			return err
		}
		if err := checkRoom(r, in); err != nil {
			return err
		}

		ok, err := c.checker.IsAvailable(ctx, tx, r.ID, in.CheckIn, in.CheckOut, availability.Options{
			Statuses: bookingModel.OccupyingStatuses(),
		})
		if err != nil {
			return err
		}
		if !ok {
			return &Error{Kind: KindConflict}
		}

		b := c.newBooking(in, r, bookingModel.BookingStatusPending)
		if b.AmountMinor <= 0 {
			return validationError("room has no price set")
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := booking_event.RecordStatusChange(ctx, tx, b, "", "awaiting payment", booking_event.ActorGuest); err != nil {
			return err
		}
		pending = b
		return nil
	})
	if err != nil {
		return nil, c.wrap(err, "initialize payment")
	}

	return c.startPayment(ctx, pending)
}

// RetryPayment re-issues the payment handle for a PENDING booking. A stored
// handle is returned unchanged so the provider never sees a second transaction.
func (c *Coordinator) RetryPayment(ctx context.Context, publicID string) (*PaymentInit, error) {
	if c.gateway == nil {
		return nil, &Error{Kind: KindIntegrationFailure, Err: errors.New("no payment gateway configured")}
	}
	b, err := c.store.FindBookingByPublicID(ctx, publicID)
	if err != nil {
		return nil, c.wrap(err, "retry payment")
	}
	if b.Status != bookingModel.BookingStatusPending {
		return nil, &Error{Kind: KindConflict, Message: "booking is not awaiting payment", BookingID: b.PublicID}
	}
	if b.PaymentReference != nil && b.AuthorizationURL != nil {
		return paymentInit(b), nil
	}

	ok, err := c.checker.IsAvailable(ctx, c.store, b.RoomID, b.CheckIn, b.CheckOut, availability.Options{
		Statuses:         bookingModel.OccupyingStatuses(),
		ExcludeBookingID: b.ID,
	})
	if err != nil {
		return nil, c.wrap(err, "retry payment")
	}
	if !ok {
		return nil, &Error{Kind: KindConflict, BookingID: b.PublicID}
	}
	return c.startPayment(ctx, b)
}

// startPayment calls the provider outside any transaction and stores the handle
func (c *Coordinator) startPayment(ctx context.Context, b *bookingModel.Booking) (*PaymentInit, error) {
	auth, err := c.gateway.Initialize(ctx, payment.InitializeRequest{
		BookingPublicID: b.PublicID,
		Email:           b.GuestEmail,
		AmountMinor:     b.AmountMinor,
		Currency:        b.Currency,
		Description:     fmt.Sprintf("Room %d, %d night(s) from %s", b.RoomID, b.Nights(), b.CheckIn.Format(utils.DateLayout)),
	})
	if err != nil {
		logger.Error(fmt.Sprintf("Payment initiation failed for booking %s", b.PublicID), err)
		return nil, &Error{Kind: KindIntegrationFailure, BookingID: b.PublicID, Err: err}
	}

	err = c.store.SetPaymentReference(ctx, b.ID, c.gateway.Name(), auth.Reference, auth.AuthorizationURL)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrReferenceAlreadySet):
		// a concurrent retry stored its handle first; hand that one out
		stored, findErr := c.store.FindBookingByID(ctx, b.ID)
		if findErr != nil {
			return nil, c.wrap(findErr, "reload booking")
		}
		return paymentInit(stored), nil
	case errors.Is(err, repository.ErrDuplicate):
		logger.Error(fmt.Sprintf("Payment reference %s already belongs to another booking", auth.Reference), err)
		return nil, &Error{Kind: KindIntegrationFailure, Message: "Payment reference collision", BookingID: b.PublicID, Err: err}
	default:
		return nil, &Error{Kind: KindIntegrationFailure, BookingID: b.PublicID, Err: err}
	}

	ref, url := auth.Reference, auth.AuthorizationURL
	b.PaymentReference = &ref
	b.AuthorizationURL = &url
	b.PaymentProvider = c.gateway.Name()
	logger.Info(fmt.Sprintf("Payment initiated for booking %s with reference %s", b.PublicID, ref))
	return paymentInit(b), nil
}

func paymentInit(b *bookingModel.Booking) *PaymentInit {
	out := &PaymentInit{
		PublicID:    b.PublicID,
		AmountMinor: b.AmountMinor,
		Currency:    b.Currency,
	}
	if b.PaymentReference != nil {
		out.Reference = *b.PaymentReference
	}
	if b.AuthorizationURL != nil {
		out.AuthorizationURL = *b.AuthorizationURL
	}
	return out
}

// ReconcilePayment applies a provider webhook. It returns (nil, nil) for
// events that need no action. On a lost race the booking is returned
// together with an ErrRaceLost-kind error.
func (c *Coordinator) ReconcilePayment(ctx context.Context, signature string, payload []byte) (*bookingModel.Booking, error) {
	if c.gateway == nil {
		return nil, &Error{Kind: KindIntegrationFailure, Err: errors.New("no payment gateway configured")}
	}
	ev, err := c.gateway.ParseEvent(signature, payload)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return nil, &Error{Kind: KindInvalidSignature, Err: err}
		}
		return nil, &Error{Kind: KindValidation, Message: "Malformed webhook event", Err: err}
	}
	if ev.Type != payment.EventChargeSuccess {
		logger.Debug(fmt.Sprintf("Ignoring %s webhook event %q", c.gateway.Name(), ev.ProviderType))
		return nil, nil
	}

	found, err := c.store.FindBookingByReference(ctx, ev.Reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Error(fmt.Sprintf("Payment received for unknown reference %s", ev.Reference), nil)
			return nil, &Error{Kind: KindUnknownReference}
		}
		return nil, c.wrap(err, "find booking by reference")
	}
	if ev.AmountMinor != 0 && ev.AmountMinor != found.AmountMinor {
		logger.Warning(fmt.Sprintf("Payment %s amount %d differs from booking %s amount %d",
			ev.Reference, ev.AmountMinor, found.PublicID, found.AmountMinor))
	}

	var (
		result  *bookingModel.Booking
		outcome *Error
	)
	err = c.store.InTx(ctx, func(tx repository.Tx) error {
		result, outcome = nil, nil
		if _, err := tx.LockRoom(ctx, found.RoomID); err != nil {
			return err
		}
		b, err := tx.LockBooking(ctx, found.ID)
		if err != nil {
			return err
		}
		result = b

		switch b.Status {
		case bookingModel.BookingStatusPaid:
			return nil
		case bookingModel.BookingStatusFailed:
			outcome = &Error{Kind: KindRaceLost, BookingID: b.PublicID}
			return nil
		case bookingModel.BookingStatusCancelled:
			outcome = &Error{Kind: KindRaceLost, Message: "booking cancelled before payment", BookingID: b.PublicID}
			if b.NeedsReconciliation {
				return nil
			}
			c.flag(b, "payment received after the booking was cancelled")
			return tx.SaveBooking(ctx, b)
		}

		ok, err := c.checker.IsAvailable(ctx, tx, b.RoomID, b.CheckIn, b.CheckOut, availability.Options{
			Statuses:         bookingModel.OccupyingStatuses(),
			ExcludeBookingID: b.ID,
		})
		if err != nil {
			return err
		}

		from := b.Status
		if ok {
			b.Status = bookingModel.BookingStatusPaid
			if err := tx.SaveBooking(ctx, b); err != nil {
				return err
			}
			return booking_event.RecordStatusChange(ctx, tx, b, from, "payment confirmed", booking_event.ActorWebhook)
		}

		b.Status = bookingModel.BookingStatusFailed
		c.flag(b, "payment received but the room was confirmed for another guest first")
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		outcome = &Error{Kind: KindRaceLost, BookingID: b.PublicID}
		return booking_event.RecordStatusChange(ctx, tx, b, from, "race lost at payment confirmation", booking_event.ActorWebhook)
	})
	if err != nil {
		return nil, c.wrap(err, "reconcile payment")
	}

	if outcome != nil {
		logger.Error(fmt.Sprintf("Booking %s needs reconciliation (reference %s)", result.PublicID, ev.Reference), outcome)
		return result, outcome
	}
	logger.Success(fmt.Sprintf("Booking %s is paid (reference %s)", result.PublicID, ev.Reference))
	return result, nil
}

func (c *Coordinator) flag(b *bookingModel.Booking, reason string) {
	at := c.opts.Now()
	b.NeedsReconciliation = true
	b.FlagReason = &reason
	b.FlaggedAt = &at
}

// CheckAvailability answers a calendar question without writing anything
func (c *Coordinator) CheckAvailability(ctx context.Context, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	if !checkIn.Before(checkOut) {
		return false, validationError("check_in must be before check_out")
	}
	if _, err := c.store.FindRoom(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, notFound("room not found")
		}
		return false, c.wrap(err, "find room")
	}
	ok, err := c.checker.IsAvailable(ctx, c.store, roomID, checkIn, checkOut, availability.Options{Statuses: c.conflictSet()})
	if err != nil {
		return false, c.wrap(err, "check availability")
	}
	return ok, nil
}

// Calendar lists the ranges that block new bookings during the month containing month
func (c *Coordinator) Calendar(ctx context.Context, roomID uint, month time.Time) ([]CalendarRange, error) {
	if _, err := c.store.FindRoom(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("room not found")
		}
		return nil, c.wrap(err, "find room")
	}
	start, end := utils.MonthBounds(month)
	bookings, err := c.store.ListOverlapping(ctx, repository.OverlapQuery{
		RoomID:   roomID,
		CheckIn:  start,
		CheckOut: end,
		Statuses: c.conflictSet(),
	})
	if err != nil {
		return nil, c.wrap(err, "calendar")
	}
	out := make([]CalendarRange, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, CalendarRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut, Status: b.Status})
	}
	return out, nil
}

// GetByPublicID returns the guest-safe view of a booking
func (c *Coordinator) GetByPublicID(ctx context.Context, publicID string) (*bookingModel.PublicBooking, error) {
	b, err := c.store.FindBookingByPublicID(ctx, strings.TrimSpace(publicID))
	if err != nil {
		return nil, c.wrap(err, "get booking")
	}
	pb := b.Public()
	return &pb, nil
}

func (c *Coordinator) GetBooking(ctx context.Context, id uint) (*bookingModel.Booking, []bookingModel.BookingStatusEvent, error) {
	b, err := c.store.FindBookingByID(ctx, id)
	if err != nil {
		return nil, nil, c.wrap(err, "get booking")
	}
	events, err := c.store.ListStatusEvents(ctx, id)
	if err != nil {
		return nil, nil, c.wrap(err, "list status events")
	}
	return b, events, nil
}

func (c *Coordinator) ListBookings(ctx context.Context, f repository.BookingFilter) ([]bookingModel.Booking, int64, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, 0, validationError("unknown status " + f.Status.String())
	}
	out, total, err := c.store.ListBookings(ctx, f)
	if err != nil {
		return nil, 0, c.wrap(err, "list bookings")
	}
	return out, total, nil
}

// ListFlagged returns bookings an operator must reconcile by hand
func (c *Coordinator) ListFlagged(ctx context.Context, page, size int) ([]bookingModel.Booking, int64, error) {
	return c.ListBookings(ctx, repository.BookingFilter{Flagged: true, Page: page, Size: size})
}

// CancelBooking is an unconditional admin override
func (c *Coordinator) CancelBooking(ctx context.Context, id uint, reason, actor string) (*bookingModel.Booking, error) {
	existing, err := c.store.FindBookingByID(ctx, id)
	if err != nil {
		return nil, c.wrap(err, "cancel booking")
	}

	var result *bookingModel.Booking
	err = c.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockRoom(ctx, existing.RoomID); err != nil {
			return err
		}
		b, err := tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		result = b
		if b.Status == bookingModel.BookingStatusCancelled {
			return nil
		}
		from := b.Status
		b.Status = bookingModel.BookingStatusCancelled
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		if reason == "" {
			reason = "cancelled by admin"
		}
		return booking_event.RecordStatusChange(ctx, tx, b, from, reason, actor)
	})
	if err != nil {
		return nil, c.wrap(err, "cancel booking")
	}
	logger.Info(fmt.Sprintf("Booking %s cancelled by %s", result.PublicID, actor))
	return result, nil
}

// DeleteBooking is an unconditional admin hard delete
func (c *Coordinator) DeleteBooking(ctx context.Context, id uint, actor string) error {
	if err := c.store.DeleteBooking(ctx, id); err != nil {
		return c.wrap(err, "delete booking")
	}
	logger.Warning(fmt.Sprintf("Booking %d deleted by %s", id, actor))
	return nil
}

// wrap passes coordinator errors through and classifies store errors
func (c *Coordinator) wrap(err error, op string) error {
	var be *Error
	switch {
	case errors.As(err, &be):
		return be
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound}
	case errors.Is(err, availability.ErrInvalidRange):
		return validationError(err.Error())
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
