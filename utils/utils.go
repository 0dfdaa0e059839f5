package utils

import (
	"errors"
	"strings"
	"time"

	"guesthouse-booking/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jinzhu/now"
)

const DateLayout = "2006-01-02"

// NewPublicID returns an opaque, unguessable booking identifier
func NewPublicID() string {
	return uuid.NewString()
}

// ParseDate accepts a calendar date (YYYY-MM-DD, read as UTC midnight) or an RFC3339 timestamp
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.ParseInLocation(DateLayout, value, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD or RFC3339")
	}
	return t.UTC(), nil
}

// ParseMonth parses YYYY-MM into the first instant of that month (UTC)
func ParseMonth(value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, errors.New("month must be YYYY-MM")
	}
	return t, nil
}

// MonthBounds returns [first instant of month, first instant of next month)
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := now.With(t.UTC()).BeginningOfMonth()
	return start, start.AddDate(0, 1, 0)
}

// StartOfDay truncates to UTC midnight
func StartOfDay(t time.Time) time.Time {
	return now.With(t.UTC()).BeginningOfDay()
}

// CreateWebhookLogEntry copies the request and response of a webhook delivery
// for the async logger. Fiber reuses its buffers, so everything is copied.
func CreateWebhookLogEntry(c *fiber.Ctx, provider, outcome string) types.LogEntry {
	method := string([]byte(c.Method()))
	url := string([]byte(c.OriginalURL()))
	requestBody := string(append([]byte(nil), c.Body()...))
	responseBody := string(append([]byte(nil), c.Response().Body()...))

	requestHeaders := make([]byte, len(c.Request().Header.Header()))
	copy(requestHeaders, c.Request().Header.Header())

	return types.LogEntry{
		Method:         method,
		URL:            url,
		Provider:       provider,
		RequestBody:    requestBody,
		ResponseBody:   responseBody,
		RequestHeaders: string(requestHeaders),
		StatusCode:     c.Response().StatusCode(),
		Outcome:        outcome,
		CreatedAt:      time.Now(),
	}
}
