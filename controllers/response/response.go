package response

import (
	"errors"

	"guesthouse-booking/logger"
	"guesthouse-booking/repository"
	bookingService "guesthouse-booking/services/booking"
	"guesthouse-booking/services/media"
	"guesthouse-booking/types"

	"github.com/gofiber/fiber/v2"
)

// JSON writes the standard envelope
func JSON(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(types.ApiResponse{
		Message: message,
		Status:  status,
		Data:    data,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return JSON(c, fiber.StatusBadRequest, message, nil)
}

// StatusFor maps a domain error onto an HTTP status
func StatusFor(err error) int {
	var be *bookingService.Error
	if errors.As(err, &be) {
		switch be.Kind {
		case bookingService.KindValidation:
			return fiber.StatusBadRequest
		case bookingService.KindConflict, bookingService.KindRaceLost:
			return fiber.StatusConflict
		case bookingService.KindInvalidSignature:
			return fiber.StatusUnauthorized
		case bookingService.KindNotFound, bookingService.KindUnknownReference:
			return fiber.StatusNotFound
		case bookingService.KindIntegrationFailure:
			return fiber.StatusBadGateway
		}
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repository.ErrRoomInUse), errors.Is(err, repository.ErrDuplicate):
		return fiber.StatusConflict
	case errors.Is(err, media.ErrDisabled):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// Error writes err without leaking internal detail. Unclassified errors are
// logged and reported as a generic failure.
func Error(c *fiber.Ctx, err error, fallback string) error {
	status := StatusFor(err)

	var be *bookingService.Error
	message := fallback
	switch {
	case errors.As(err, &be):
		message = be.PublicMessage()
		if be.BookingID != "" {
			return c.Status(status).JSON(types.ApiResponse{
				Message: message,
				Status:  status,
				Data:    fiber.Map{"public_id": be.BookingID},
			})
		}
	case status == fiber.StatusNotFound:
		message = "Resource not found"
	case errors.Is(err, repository.ErrRoomInUse):
		message = "Room has bookings; deactivate it instead"
	case errors.Is(err, repository.ErrDuplicate):
		message = "Resource already exists"
	case errors.Is(err, media.ErrDisabled):
		message = "Image uploads are not configured"
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error(fallback, err)
	}
	return JSON(c, status, message, nil)
}
