package booking

import (
	"time"

	"guesthouse-booking/models/room"
)

// Booking represents one guest stay on one room over [CheckIn, CheckOut)
type Booking struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID string `gorm:"type:varchar(64);not null;uniqueIndex" json:"public_id"`

	// Foreign key for rooms relationship
	RoomID uint      `gorm:"not null;index" json:"room_id"`
	Room   room.Room `gorm:"foreignKey:RoomID" json:"-"`

	CheckIn  time.Time `gorm:"not null" json:"check_in"`
	CheckOut time.Time `gorm:"not null" json:"check_out"`

	GuestName  string `gorm:"type:varchar(255);not null" json:"guest_name"`
	GuestEmail string `gorm:"type:varchar(255);not null" json:"guest_email"`
	GuestPhone string `gorm:"type:varchar(32);not null" json:"guest_phone"`
	Adults     int    `gorm:"not null;default:1" json:"adults"`
	Children   int    `gorm:"not null;default:0" json:"children"`

	Status BookingStatus `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`

	// Payment correlation; NULL until a payment attempt is initiated
	PaymentReference *string `gorm:"type:varchar(255)" json:"payment_reference,omitempty"`
	PaymentProvider  string  `gorm:"type:varchar(32)" json:"payment_provider,omitempty"`
	AuthorizationURL *string `gorm:"type:text" json:"authorization_url,omitempty"`
	AmountMinor      int64   `gorm:"not null;default:0" json:"amount_minor"`
	Currency         string  `gorm:"type:varchar(8)" json:"currency,omitempty"`

	// Raised when a payment landed on a booking that could not be honoured
	NeedsReconciliation bool       `gorm:"not null;default:false" json:"needs_reconciliation"`
	FlagReason          *string    `gorm:"type:text" json:"flag_reason,omitempty"`
	FlaggedAt           *time.Time `json:"flagged_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Nights returns the number of nights, counting any partial day as a full night
func (b *Booking) Nights() int64 {
	return NightsBetween(b.CheckIn, b.CheckOut)
}

// NightsBetween rounds the stay length up to whole days
func NightsBetween(checkIn, checkOut time.Time) int64 {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	nights := int64(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}

// PublicBooking is the guest-facing projection of a booking.
// It never carries the internal id, payment reference or contact details.
type PublicBooking struct {
	PublicID  string        `json:"public_id"`
	RoomID    uint          `json:"room_id"`
	CheckIn   time.Time     `json:"check_in"`
	CheckOut  time.Time     `json:"check_out"`
	GuestName string        `json:"guest_name"`
	Adults    int           `json:"adults"`
	Children  int           `json:"children"`
	Status    BookingStatus `json:"status"`
	Nights    int64         `json:"nights"`
	Amount    int64         `json:"amount_minor"`
	Currency  string        `json:"currency,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Public builds the guest-safe view
func (b *Booking) Public() PublicBooking {
	return PublicBooking{
		PublicID:  b.PublicID,
		RoomID:    b.RoomID,
		CheckIn:   b.CheckIn,
		CheckOut:  b.CheckOut,
		GuestName: b.GuestName,
		Adults:    b.Adults,
		Children:  b.Children,
		Status:    b.Status,
		Nights:    b.Nights(),
		Amount:    b.AmountMinor,
		Currency:  b.Currency,
		CreatedAt: b.CreatedAt,
	}
}

// OverlapsRange applies the half-open interval rule: back-to-back stays do not overlap
func (b *Booking) OverlapsRange(checkIn, checkOut time.Time) bool {
	return b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn)
}
