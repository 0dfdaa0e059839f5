package booking

import (
	"fmt"
)

// Kind classifies coordinator failures for callers
type Kind string

const (
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
	KindInvalidSignature   Kind = "invalid_signature"
	KindUnknownReference   Kind = "unknown_reference"
	KindRaceLost           Kind = "race_lost"
	KindIntegrationFailure Kind = "integration_failure"
	KindNotFound           Kind = "not_found"
)

// Error is the single error type returned by the coordinator.
// Message is safe to show to callers; Err is internal detail.
type Error struct {
	Kind    Kind
	Message string
	// BookingID is the public id of the booking the failure concerns, if any
	BookingID string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = publicMessages[e.Kind]
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so errors.Is(err, ErrConflict) works for any conflict
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// PublicMessage returns the caller-facing message
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return publicMessages[e.Kind]
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidSignature   = &Error{Kind: KindInvalidSignature}
	ErrUnknownReference   = &Error{Kind: KindUnknownReference}
	ErrRaceLost           = &Error{Kind: KindRaceLost}
	ErrIntegrationFailure = &Error{Kind: KindIntegrationFailure}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

var publicMessages = map[Kind]string{
	KindValidation:         "Invalid booking request",
	KindConflict:           "Room is not available for the selected dates",
	KindInvalidSignature:   "Invalid webhook signature",
	KindUnknownReference:   "Unknown payment reference",
	KindRaceLost:           "Room was booked by another guest before payment completed",
	KindIntegrationFailure: "Payment provider is unavailable, please retry",
	KindNotFound:           "Booking not found",
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}
