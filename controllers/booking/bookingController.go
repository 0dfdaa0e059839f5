package booking

import (
	"errors"

	"guesthouse-booking/config"
	"guesthouse-booking/controllers/response"
	"guesthouse-booking/logger"
	bookingService "guesthouse-booking/services/booking"
	"guesthouse-booking/services/booking_event"
	bookingTypes "guesthouse-booking/types/booking"

	"github.com/gofiber/fiber/v2"
)

// BookingController handles the guest booking routes
type BookingController struct {
	coordinator *bookingService.Coordinator
}

func NewBookingController(coordinator *bookingService.Coordinator) *BookingController {
	return &BookingController{coordinator: coordinator}
}

// ParseCreateRequest reads and pre-validates a booking payload
func ParseCreateRequest(c *fiber.Ctx) (bookingService.CreateBookingInput, error) {
	var req bookingTypes.BookingCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return bookingService.CreateBookingInput{}, errors.New("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return bookingService.CreateBookingInput{}, err
	}
	checkIn, checkOut, err := req.Dates()
	if err != nil {
		return bookingService.CreateBookingInput{}, err
	}
	return bookingService.CreateBookingInput{
		RoomID:     req.RoomID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		GuestPhone: req.GuestPhone,
		Adults:     req.AdultCount(),
		Children:   req.Children,
	}, nil
}

// Store confirms a booking without payment. Only served in direct-confirm mode.
func (bc *BookingController) Store(c *fiber.Ctx) error {
	if bc.coordinator.Mode() != config.ModeDirectConfirm {
		return response.JSON(c, fiber.StatusForbidden, "Direct booking is disabled; start a payment instead", nil)
	}
	in, err := ParseCreateRequest(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	b, err := bc.coordinator.CreateBooking(c.Context(), in, booking_event.ActorGuest)
	if err != nil {
		return response.Error(c, err, "Failed to create booking")
	}
	pb := b.Public()
	return response.JSON(c, fiber.StatusCreated, "Booking confirmed", pb)
}

// Show returns the guest-facing view of a booking by its public id
func (bc *BookingController) Show(c *fiber.Ctx) error {
	pb, err := bc.coordinator.GetByPublicID(c.Context(), c.Params("publicId"))
	if err != nil {
		return response.Error(c, err, "Failed to load booking")
	}
	return response.JSON(c, fiber.StatusOK, "Booking retrieved successfully", pb)
}
