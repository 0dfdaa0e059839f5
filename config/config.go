package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Booking deployment modes
const (
	ModePayLater      = "pay_later"
	ModeDirectConfirm = "direct_confirm"
)

// Payment providers
const (
	ProviderPaystack = "paystack"
	ProviderStripe   = "stripe"
)

// Config holds all configuration values.
type Config struct {
	AppHost     string `mapstructure:"APP_HOST"`
	AppPort     string `mapstructure:"APP_PORT"`
	AppEnv      string `mapstructure:"APP_ENV"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBDatabase string `mapstructure:"DB_DATABASE"`
	DBUsername string `mapstructure:"DB_USERNAME"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	BookingMode string `mapstructure:"BOOKING_MODE"`
	Currency    string `mapstructure:"CURRENCY"`

	PaymentProvider     string `mapstructure:"PAYMENT_PROVIDER"`
	PaystackSecretKey   string `mapstructure:"PAYSTACK_SECRET_KEY"`
	PaystackBaseURL     string `mapstructure:"PAYSTACK_BASE_URL"`
	PaystackCallbackURL string `mapstructure:"PAYSTACK_CALLBACK_URL"`
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeSuccessURL    string `mapstructure:"STRIPE_SUCCESS_URL"`
	StripeCancelURL     string `mapstructure:"STRIPE_CANCEL_URL"`

	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `mapstructure:"CLOUDINARY_FOLDER"`

	WebhookRateLimit int `mapstructure:"WEBHOOK_RATE_LIMIT"`
}

var keys = map[string]interface{}{
	"APP_HOST":              "0.0.0.0",
	"APP_PORT":              "8080",
	"APP_ENV":               "development",
	"FRONTEND_URL":          "*",
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_DATABASE":           "guesthouse",
	"DB_USERNAME":           "postgres",
	"DB_PASSWORD":           "",
	"DB_SSLMODE":            "disable",
	"JWT_SECRET":            "",
	"JWT_TTL":               "12h",
	"ADMIN_USERNAME":        "",
	"ADMIN_PASSWORD":        "",
	"BOOKING_MODE":          ModePayLater,
	"CURRENCY":              "NGN",
	"PAYMENT_PROVIDER":      ProviderPaystack,
	"PAYSTACK_SECRET_KEY":   "",
	"PAYSTACK_BASE_URL":     "https://api.paystack.co",
	"PAYSTACK_CALLBACK_URL": "",
	"STRIPE_SECRET_KEY":     "",
	"STRIPE_WEBHOOK_SECRET": "",
	"STRIPE_SUCCESS_URL":    "",
	"STRIPE_CANCEL_URL":     "",
	"CLOUDINARY_CLOUD_NAME": "",
	"CLOUDINARY_API_KEY":    "",
	"CLOUDINARY_API_SECRET": "",
	"CLOUDINARY_FOLDER":     "guesthouse/rooms",
	"WEBHOOK_RATE_LIMIT":    120,
}

// Load reads the configuration and validates it for serving traffic
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read loads .env (if present) and the process environment without
// validation. Tools that only need the database use it.
func Read() (*Config, error) {
	// A missing .env is fine; the process environment still applies
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, def := range keys {
		v.SetDefault(key, def)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.BookingMode = strings.ToLower(strings.TrimSpace(cfg.BookingMode))
	cfg.PaymentProvider = strings.ToLower(strings.TrimSpace(cfg.PaymentProvider))
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	return &cfg, nil
}

// Validate fails fast on settings the service cannot run without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	switch c.BookingMode {
	case ModePayLater, ModeDirectConfirm:
	default:
		return fmt.Errorf("BOOKING_MODE must be %q or %q, got %q", ModePayLater, ModeDirectConfirm, c.BookingMode)
	}
	if c.BookingMode == ModeDirectConfirm {
		return nil
	}
	switch c.PaymentProvider {
	case ProviderPaystack:
		if c.PaystackSecretKey == "" {
			return fmt.Errorf("PAYSTACK_SECRET_KEY is not set")
		}
	case ProviderStripe:
		if c.StripeSecretKey == "" || c.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUsername, c.DBPassword, c.DBDatabase, c.DBSSLMode)
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.AppPort
}

// CloudinaryEnabled reports whether room image uploads can be served
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}
