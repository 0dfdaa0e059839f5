package payment

import (
	"context"
	"errors"
)

var (
	// ErrInvalidSignature means the webhook payload was not signed by the provider
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent means a correctly signed payload could not be decoded
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// EventType is the provider-neutral classification of a webhook event
type EventType string

const (
	EventChargeSuccess EventType = "charge.success"
	EventChargeFailed  EventType = "charge.failed"
	EventIgnored       EventType = "ignored"
)

// Event is a verified webhook notification
type Event struct {
	Type        EventType
	Reference   string
	AmountMinor int64
	Currency    string
	// ProviderType is the raw event name as sent by the provider
	ProviderType string
}

// InitializeRequest asks the provider for a hosted checkout
type InitializeRequest struct {
	BookingPublicID string
	Email           string
	AmountMinor     int64
	Currency        string
	Description     string
	Metadata        map[string]string
}

// Authorization is what the guest needs to complete payment
type Authorization struct {
	AuthorizationURL string
	Reference        string
}

// Gateway is an external payment provider
type Gateway interface {
	Name() string
	// SignatureHeader names the HTTP header carrying the webhook signature
	SignatureHeader() string
	Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error)
	// ParseEvent verifies the signature over the raw payload before decoding it
	ParseEvent(signature string, payload []byte) (*Event, error)
}
