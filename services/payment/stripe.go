package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

const StripeSignatureHeader = "Stripe-Signature"

// StripeConfig holds Stripe Checkout settings
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// StripeGateway drives Stripe Checkout; the session id is the payment reference
type StripeGateway struct {
	config StripeConfig
	// newSession is swapped in tests
	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripeGateway(config StripeConfig) (*StripeGateway, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if config.WebhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret is required")
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeGateway{config: config, newSession: session.New}, nil
}

func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) SignatureHeader() string {
	return StripeSignatureHeader
}

func (g *StripeGateway) Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	description := req.Description
	if description == "" {
		description = "Guesthouse booking " + req.BookingPublicID
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.config.SuccessURL),
		CancelURL:         stripe.String(g.config.CancelURL),
		CustomerEmail:     stripe.String(req.Email),
		ClientReferenceID: stripe.String(req.BookingPublicID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{"booking_id": req.BookingPublicID},
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	params.Context = ctx

	s, err := g.newSession(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &Authorization{AuthorizationURL: s.URL, Reference: s.ID}, nil
}

func (g *StripeGateway) ParseEvent(signature string, payload []byte) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ProviderType: string(event.Type), Type: EventIgnored}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed", "checkout.session.expired":
	default:
		return out, nil
	}

	var s stripe.CheckoutSession
	if event.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedEvent)
	}
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	out.Reference = s.ID
	out.AmountMinor = s.AmountTotal
	out.Currency = strings.ToUpper(string(s.Currency))

	switch event.Type {
	case "checkout.session.completed":
		// delayed methods complete with payment_status=unpaid and settle later
		if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			out.Type = EventChargeSuccess
		}
	case "checkout.session.async_payment_succeeded":
		out.Type = EventChargeSuccess
	default:
		out.Type = EventChargeFailed
	}
	if out.Type == EventChargeSuccess && out.Reference == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedEvent)
	}
	return out, nil
}
