package response

import (
	"errors"
	"fmt"
	"testing"

	"guesthouse-booking/repository"
	bookingService "guesthouse-booking/services/booking"
	"guesthouse-booking/services/media"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&bookingService.Error{Kind: bookingService.KindValidation}, fiber.StatusBadRequest},
		{&bookingService.Error{Kind: bookingService.KindConflict}, fiber.StatusConflict},
		{&bookingService.Error{Kind: bookingService.KindRaceLost}, fiber.StatusConflict},
		{&bookingService.Error{Kind: bookingService.KindInvalidSignature}, fiber.StatusUnauthorized},
		{&bookingService.Error{Kind: bookingService.KindUnknownReference}, fiber.StatusNotFound},
		{&bookingService.Error{Kind: bookingService.KindNotFound}, fiber.StatusNotFound},
		{&bookingService.Error{Kind: bookingService.KindIntegrationFailure}, fiber.StatusBadGateway},
		{fmt.Errorf("find room: %w", repository.ErrNotFound), fiber.StatusNotFound},
		{repository.ErrRoomInUse, fiber.StatusConflict},
		{fmt.Errorf("create room: %w", repository.ErrDuplicate), fiber.StatusConflict},
		{media.ErrDisabled, fiber.StatusServiceUnavailable},
		{errors.New("connection reset"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}
