package booking

import (
	"fmt"
	"strings"
	"time"

	"guesthouse-booking/utils"
)

// BookingCreateRequest is the guest payload for a new booking or payment.
// Dates are YYYY-MM-DD (UTC midnight) or RFC3339.
type BookingCreateRequest struct {
	RoomID     uint   `json:"room_id" validate:"required"`
	CheckIn    string `json:"check_in" validate:"required"`
	CheckOut   string `json:"check_out" validate:"required"`
	GuestName  string `json:"guest_name" validate:"required"`
	GuestEmail string `json:"guest_email" validate:"required,email"`
	GuestPhone string `json:"guest_phone" validate:"omitempty,phone"`
	Adults     int    `json:"adults" validate:"gte=0"`
	Children   int    `json:"children" validate:"gte=0"`
}

// use first step validation
func (b *BookingCreateRequest) Validate() error {
	b.GuestName = strings.TrimSpace(b.GuestName)
	b.GuestEmail = strings.TrimSpace(b.GuestEmail)
	b.GuestPhone = strings.TrimSpace(b.GuestPhone)
	return utils.ValidateStruct(b)
}

// Dates parses the stay range
func (b BookingCreateRequest) Dates() (time.Time, time.Time, error) {
	checkIn, err := utils.ParseDate(b.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("check_in: %w", err)
	}
	checkOut, err := utils.ParseDate(b.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("check_out: %w", err)
	}
	return checkIn, checkOut, nil
}

// Adults defaults to one when omitted
func (b BookingCreateRequest) AdultCount() int {
	if b.Adults == 0 {
		return 1
	}
	return b.Adults
}

type BookingCancelRequest struct {
	Reason string `json:"reason"`
}
