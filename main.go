package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guesthouse-booking/config"
	"guesthouse-booking/database"
	"guesthouse-booking/database/seeders"
	"guesthouse-booking/httpServices/paystack"
	"guesthouse-booking/logger"
	"guesthouse-booking/middleware"
	"guesthouse-booking/repository"
	"guesthouse-booking/routes"
	"guesthouse-booking/services/availability"
	bookingService "guesthouse-booking/services/booking"
	"guesthouse-booking/services/media"
	paymentService "guesthouse-booking/services/payment"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func newGateway(cfg *config.Config) (paymentService.Gateway, error) {
	if cfg.BookingMode == config.ModeDirectConfirm && cfg.PaystackSecretKey == "" && cfg.StripeSecretKey == "" {
		return nil, nil
	}
	switch cfg.PaymentProvider {
	case config.ProviderStripe:
		gateway, err := paymentService.NewStripeGateway(paymentService.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.StripeSuccessURL,
			CancelURL:     cfg.StripeCancelURL,
		})
		if err != nil {
			return nil, err
		}
		return gateway, nil
	default:
		client := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey)
		return paymentService.NewPaystackGateway(client, cfg.PaystackSecretKey, cfg.PaystackCallbackURL), nil
	}
}

func newStorage(cfg *config.Config) media.Storage {
	if !cfg.CloudinaryEnabled() {
		logger.Warning("Cloudinary is not configured; room image uploads are disabled")
		return media.DisabledStorage{}
	}
	storage, err := media.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if err != nil {
		logger.Error("Failed to initialise Cloudinary; room image uploads are disabled", err)
		return media.DisabledStorage{}
	}
	return storage
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(fmt.Sprintf("Invalid configuration: %v", err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to prepare the database: %v", err))
	}
	store := repository.NewGormStore(db)

	if cfg.AdminUsername != "" {
		if err := seeders.SeedAdmin(context.Background(), store, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			logger.Error("Failed to seed the bootstrap admin", err)
		}
	}

	gateway, err := newGateway(cfg)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to configure payments: %v", err))
	}
	coordinator := bookingService.NewCoordinator(store, availability.NewChecker(), gateway, bookingService.Options{
		Mode:     cfg.BookingMode,
		Currency: cfg.Currency,
	})

	storage := newStorage(cfg)
	cleanup := media.NewCleanupQueue(storage, media.DefaultCleanupConfig())
	cleanup.Start()

	asyncLogger := logger.NewAsyncLogger(db)
	asyncLogger.Start()

	app := fiber.New(fiber.Config{
		ReadBufferSize:  32768, // 32KB read buffer
		WriteBufferSize: 32768, // 32KB write buffer
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       12 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberLogger.New(fiberLogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.FrontendURL != "*",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Rooms:            store,
		Admins:           store,
		Coordinator:      coordinator,
		Gateway:          gateway,
		Storage:          storage,
		Cleanup:          cleanup,
		JWT:              middleware.NewJWTAuth(cfg.JWTSecret, cfg.JWTTTL),
		AsyncLogger:      asyncLogger,
		WebhookRateLimit: cfg.WebhookRateLimit,
	})

	go func() {
		logger.Success(fmt.Sprintf("Server is running on %s in %s mode", cfg.Addr(), cfg.BookingMode))
		if err := app.Listen(cfg.Addr()); err != nil {
			logger.Error("Server stopped", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server shutdown failed", err)
	}
	if err := cleanup.Close(ctx); err != nil {
		logger.Error("Media cleanup did not drain", err)
	}
	asyncLogger.Close()
	if err := database.Close(db); err != nil {
		logger.Error("Failed to close the database", err)
	}
	logger.Success("Shutdown complete")
}
