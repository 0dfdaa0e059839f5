package room

import (
	"time"
)

// Room is one independently bookable unit of the property
type Room struct {
	ID            uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string      `gorm:"type:varchar(255);not null;unique" json:"name"`
	Description   string      `gorm:"type:text" json:"description"`
	PricePerNight float64     `gorm:"type:numeric(12,2);not null;check:price_per_night >= 0" json:"price_per_night"`
	Capacity      int         `gorm:"not null;default:2" json:"capacity"`
	IsActive      bool        `gorm:"not null;default:true" json:"is_active"`
	Images        []RoomImage `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"images"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// RoomImage is a photo hosted on the media host
type RoomImage struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID        uint      `gorm:"not null;index" json:"room_id"`
	URL           string    `gorm:"type:text;not null" json:"url"`
	MediaPublicID string    `gorm:"type:varchar(255);not null" json:"-"`
	Position      int       `gorm:"not null;default:0" json:"position"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName sets the table name for the RoomImage model
func (RoomImage) TableName() string {
	return "room_images"
}

// PriceMinor returns the nightly price in minor currency units
func (r *Room) PriceMinor() int64 {
	// numeric(12,2) values are exact in cents; round to absorb float error
	return int64(r.PricePerNight*100 + 0.5)
}
