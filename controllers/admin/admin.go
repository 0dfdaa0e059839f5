package admin

import (
	"strconv"
	"strings"

	bookingController "guesthouse-booking/controllers/booking"
	"guesthouse-booking/controllers/response"
	"guesthouse-booking/logger"
	"guesthouse-booking/middleware"
	bookingModel "guesthouse-booking/models/booking"
	"guesthouse-booking/repository"
	bookingService "guesthouse-booking/services/booking"
	"guesthouse-booking/types"
	bookingTypes "guesthouse-booking/types/booking"
	"guesthouse-booking/utils"

	"github.com/gofiber/fiber/v2"
)

// AdminBookingController serves the back-office booking routes
type AdminBookingController struct {
	coordinator *bookingService.Coordinator
}

func NewAdminBookingController(coordinator *bookingService.Coordinator) *AdminBookingController {
	return &AdminBookingController{coordinator: coordinator}
}

func actor(c *fiber.Ctx) string {
	if name := middleware.GetUsername(c); name != "" {
		return "admin:" + name
	}
	return "admin"
}

func bookingID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid booking id")
	}
	return uint(id), nil
}

func paginated(items []bookingModel.Booking, total int64, f repository.BookingFilter) types.Paginated {
	page, size := repository.NormalizePage(f)
	if items == nil {
		items = []bookingModel.Booking{}
	}
	return types.Paginated{Items: items, Total: total, Page: page, Size: size}
}

// Index lists bookings, newest first.
// Query: status, room_id, from, to (YYYY-MM-DD), flagged, page, size.
func (ac *AdminBookingController) Index(c *fiber.Ctx) error {
	f := repository.BookingFilter{
		Status:  bookingModel.BookingStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Flagged: c.QueryBool("flagged", false),
		Page:    c.QueryInt("page", 1),
		Size:    c.QueryInt("size", 20),
	}
	if raw := c.Query("room_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return response.BadRequest(c, "room_id must be a number")
		}
		f.RoomID = uint(id)
	}
	if raw := c.Query("from"); raw != "" {
		t, err := utils.ParseDate(raw)
		if err != nil {
			return response.BadRequest(c, "from: "+err.Error())
		}
		f.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := utils.ParseDate(raw)
		if err != nil {
			return response.BadRequest(c, "to: "+err.Error())
		}
		f.To = &t
	}

	items, total, err := ac.coordinator.ListBookings(c.Context(), f)
	if err != nil {
		return response.Error(c, err, "Failed to list bookings")
	}
	return response.JSON(c, fiber.StatusOK, "Bookings retrieved successfully", paginated(items, total, f))
}

// Flagged lists bookings that took a payment they could not honour
func (ac *AdminBookingController) Flagged(c *fiber.Ctx) error {
	f := repository.BookingFilter{Flagged: true, Page: c.QueryInt("page", 1), Size: c.QueryInt("size", 20)}
	items, total, err := ac.coordinator.ListFlagged(c.Context(), f.Page, f.Size)
	if err != nil {
		return response.Error(c, err, "Failed to list flagged bookings")
	}
	return response.JSON(c, fiber.StatusOK, "Flagged bookings retrieved successfully", paginated(items, total, f))
}

func (ac *AdminBookingController) Show(c *fiber.Ctx) error {
	id, err := bookingID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	b, events, err := ac.coordinator.GetBooking(c.Context(), id)
	if err != nil {
		return response.Error(c, err, "Failed to load booking")
	}
	return response.JSON(c, fiber.StatusOK, "Booking retrieved successfully", fiber.Map{
		"booking": b,
		"events":  events,
	})
}

// Store records a walk-in booking, confirmed without payment
func (ac *AdminBookingController) Store(c *fiber.Ctx) error {
	in, err := bookingController.ParseCreateRequest(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	b, err := ac.coordinator.CreateBooking(c.Context(), in, actor(c))
	if err != nil {
		return response.Error(c, err, "Failed to create booking")
	}
	return response.JSON(c, fiber.StatusCreated, "Booking confirmed", b)
}

func (ac *AdminBookingController) Cancel(c *fiber.Ctx) error {
	id, err := bookingID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	var req bookingTypes.BookingCancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			logger.Error("Failed to parse request body", err)
			return response.BadRequest(c, "Invalid request body")
		}
	}
	b, err := ac.coordinator.CancelBooking(c.Context(), id, strings.TrimSpace(req.Reason), actor(c))
	if err != nil {
		return response.Error(c, err, "Failed to cancel booking")
	}
	return response.JSON(c, fiber.StatusOK, "Booking cancelled", b)
}

func (ac *AdminBookingController) Destroy(c *fiber.Ctx) error {
	id, err := bookingID(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	if err := ac.coordinator.DeleteBooking(c.Context(), id, actor(c)); err != nil {
		return response.Error(c, err, "Failed to delete booking")
	}
	return response.JSON(c, fiber.StatusOK, "Booking deleted", nil)
}
