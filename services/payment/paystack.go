package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"guesthouse-booking/httpServices/paystack"
)

const PaystackSignatureHeader = "x-paystack-signature"

// PaystackGateway drives Paystack hosted checkout
type PaystackGateway struct {
	client      *paystack.Client
	secretKey   string
	callbackURL string
}

func NewPaystackGateway(client *paystack.Client, secretKey, callbackURL string) *PaystackGateway {
	return &PaystackGateway{client: client, secretKey: secretKey, callbackURL: callbackURL}
}

func (g *PaystackGateway) Name() string {
	return "paystack"
}

func (g *PaystackGateway) SignatureHeader() string {
	return PaystackSignatureHeader
}

func (g *PaystackGateway) Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	metadata := map[string]string{"booking_id": req.BookingPublicID}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	data, err := g.client.InitializeTransaction(ctx, paystack.InitializeTransactionRequest{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Currency:    req.Currency,
		CallbackURL: g.callbackURL,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: %w", err)
	}
	return &Authorization{AuthorizationURL: data.AuthorizationURL, Reference: data.Reference}, nil
}

func (g *PaystackGateway) ParseEvent(signature string, payload []byte) (*Event, error) {
	if !VerifySignature(g.secretKey, signature, payload) {
		return nil, ErrInvalidSignature
	}

	var ev paystack.WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out := &Event{
		Reference:    ev.Data.Reference,
		AmountMinor:  ev.Data.Amount,
		Currency:     ev.Data.Currency,
		ProviderType: ev.Event,
	}
	switch ev.Event {
	case "charge.success":
		out.Type = EventChargeSuccess
	case "charge.failed":
		out.Type = EventChargeFailed
	default:
		out.Type = EventIgnored
	}
	if out.Type == EventChargeSuccess && out.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", ErrMalformedEvent)
	}
	return out, nil
}
