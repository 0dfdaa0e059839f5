package routes

import (
	"time"

	"guesthouse-booking/constants"
	"guesthouse-booking/controllers/admin"
	"guesthouse-booking/controllers/auth"
	"guesthouse-booking/controllers/booking"
	"guesthouse-booking/controllers/payment"
	"guesthouse-booking/controllers/room"
	"guesthouse-booking/logger"
	"guesthouse-booking/middleware"
	"guesthouse-booking/repository"
	bookingService "guesthouse-booking/services/booking"
	"guesthouse-booking/services/media"
	paymentService "guesthouse-booking/services/payment"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Dependencies are the wired services the HTTP layer needs
type Dependencies struct {
	Rooms       repository.RoomStore
	Admins      repository.AdminStore
	Coordinator *bookingService.Coordinator
	Gateway     paymentService.Gateway
	Storage     media.Storage
	Cleanup     room.Cleaner
	JWT         *middleware.JWTAuth
	AsyncLogger *logger.AsyncLogger

	// WebhookRateLimit caps webhook requests per IP per minute; 0 disables it
	WebhookRateLimit int
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	authController := auth.NewAuthController(deps.Admins, deps.JWT)
	bookingController := booking.NewBookingController(deps.Coordinator)
	paymentController := payment.NewPaymentController(deps.Coordinator, deps.Gateway, deps.AsyncLogger)
	roomController := room.NewRoomController(deps.Rooms, deps.Coordinator, deps.Storage, deps.Cleanup)
	adminBookingController := admin.NewAdminBookingController(deps.Coordinator)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "mode": deps.Coordinator.Mode()})
	})

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	api := app.Group("/api")
	api.Post("/auth/login", authController.Login)
	api.Post("/auth/logout", authController.Logout)

	rooms := api.Group("/rooms")
	rooms.Get("/", roomController.Index)
	rooms.Get("/:id", roomController.Show)
	rooms.Get("/:id/availability", roomController.Availability)
	rooms.Get("/:id/calendar", roomController.Calendar)

	/*=============================================================================
	| Booking Routes
	===============================================================================*/
	bookings := api.Group("/bookings")
	bookings.Post("/", bookingController.Store)
	bookings.Get("/:publicId", bookingController.Show)

	/*=============================================================================
	| Payment Routes
	===============================================================================*/
	payments := api.Group("/payments")
	payments.Post("/initialize", paymentController.Initialize)
	payments.Post("/:publicId/retry", paymentController.Retry)

	webhookHandlers := []fiber.Handler{}
	if deps.WebhookRateLimit > 0 {
		webhookHandlers = append(webhookHandlers, limiter.New(limiter.Config{
			Max:        deps.WebhookRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				logger.Warning("Webhook rate limit reached for " + c.IP())
				return c.SendStatus(fiber.StatusTooManyRequests)
			},
		}))
	}
	webhookHandlers = append(webhookHandlers, paymentController.Webhook)
	payments.Post("/webhook", webhookHandlers...)

	/*=============================================================================
	| Admin Routes
	===============================================================================*/
	adminGroup := api.Group("/admin", deps.JWT.RequirePermissions(constants.PermAdminFull))

	adminGroup.Get("/rooms", roomController.AdminIndex)
	adminGroup.Post("/rooms", roomController.Store)
	adminGroup.Put("/rooms/:id", roomController.Update)
	adminGroup.Delete("/rooms/:id", roomController.Destroy)
	adminGroup.Post("/rooms/:id/images", roomController.UploadImage)
	adminGroup.Delete("/rooms/:id/images/:imageId", roomController.DeleteImage)

	adminGroup.Get("/bookings", adminBookingController.Index)
	adminGroup.Get("/bookings/flagged", adminBookingController.Flagged)
	adminGroup.Post("/bookings", adminBookingController.Store)
	adminGroup.Get("/bookings/:id", adminBookingController.Show)
	adminGroup.Post("/bookings/:id/cancel", adminBookingController.Cancel)
	adminGroup.Delete("/bookings/:id", adminBookingController.Destroy)
}
