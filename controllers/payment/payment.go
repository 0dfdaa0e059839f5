package payment

import (
	"errors"
	"fmt"

	bookingController "guesthouse-booking/controllers/booking"
	"guesthouse-booking/controllers/response"
	"guesthouse-booking/logger"
	bookingService "guesthouse-booking/services/booking"
	paymentService "guesthouse-booking/services/payment"
	"guesthouse-booking/utils"

	"github.com/gofiber/fiber/v2"
)

// Webhook outcomes recorded in the delivery log
const (
	OutcomePaid             = "paid"
	OutcomeIgnored          = "ignored"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeMalformed        = "malformed"
	OutcomeUnknownReference = "unknown_reference"
	OutcomeRaceLost         = "race_lost"
	OutcomeError            = "error"
)

type PaymentController struct {
	coordinator *bookingService.Coordinator
	gateway     paymentService.Gateway
	Logger      *logger.AsyncLogger
}

func NewPaymentController(coordinator *bookingService.Coordinator, gateway paymentService.Gateway, asyncLogger *logger.AsyncLogger) *PaymentController {
	return &PaymentController{coordinator: coordinator, gateway: gateway, Logger: asyncLogger}
}

// Initialize places a hold and returns the provider's checkout link
func (pc *PaymentController) Initialize(c *fiber.Ctx) error {
	in, err := bookingController.ParseCreateRequest(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	started, err := pc.coordinator.InitializePayment(c.Context(), in)
	if err != nil {
		return response.Error(c, err, "Failed to initialize payment")
	}
	return response.JSON(c, fiber.StatusCreated, "Payment initialized", started)
}

// Retry re-issues the checkout link for a booking still awaiting payment
func (pc *PaymentController) Retry(c *fiber.Ctx) error {
	started, err := pc.coordinator.RetryPayment(c.Context(), c.Params("publicId"))
	if err != nil {
		return response.Error(c, err, "Failed to retry payment")
	}
	return response.JSON(c, fiber.StatusOK, "Payment link ready", started)
}

// Webhook applies a provider notification. Anything other than a bad
// signature is acknowledged so the provider stops redelivering; store
// failures answer 500 so the delivery is retried.
func (pc *PaymentController) Webhook(c *fiber.Ctx) error {
	if pc.gateway == nil {
		return response.JSON(c, fiber.StatusServiceUnavailable, "Payments are not configured", nil)
	}
	signature := c.Get(pc.gateway.SignatureHeader())
	payload := append([]byte(nil), c.Body()...)

	b, err := pc.coordinator.ReconcilePayment(c.Context(), signature, payload)

	var (
		status  = fiber.StatusOK
		message = "Webhook processed"
		outcome = OutcomePaid
		data    interface{}
	)
	if b != nil {
		data = fiber.Map{"public_id": b.PublicID, "status": b.Status}
	}

	switch {
	case err == nil && b == nil:
		outcome, message = OutcomeIgnored, "Event ignored"
	case err == nil:
	case errors.Is(err, bookingService.ErrInvalidSignature):
		status, outcome, message = fiber.StatusUnauthorized, OutcomeInvalidSignature, "Invalid signature"
		logger.Warning(fmt.Sprintf("Rejected %s webhook with invalid signature from %s", pc.gateway.Name(), c.IP()))
	case errors.Is(err, bookingService.ErrValidation):
		outcome, message = OutcomeMalformed, "Malformed event ignored"
		logger.Warning(fmt.Sprintf("Malformed %s webhook: %v", pc.gateway.Name(), err))
	case errors.Is(err, bookingService.ErrUnknownReference):
		outcome, message = OutcomeUnknownReference, "Unknown reference acknowledged"
	case errors.Is(err, bookingService.ErrRaceLost):
		outcome, message = OutcomeRaceLost, "Payment recorded for reconciliation"
	default:
		status, outcome, message = fiber.StatusInternalServerError, OutcomeError, "Failed to process webhook"
		logger.Error("Failed to process payment webhook", err)
	}

	result := response.JSON(c, status, message, data)
	if pc.Logger != nil {
		pc.Logger.Log(utils.CreateWebhookLogEntry(c, pc.gateway.Name(), outcome))
	}
	return result
}
