package room

import (
	"strings"

	"guesthouse-booking/utils"
)

type RoomCreateRequest struct {
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	PricePerNight float64 `json:"price_per_night" validate:"gte=0"`
	Capacity      int     `json:"capacity" validate:"gte=1"`
	IsActive      *bool   `json:"is_active"`
}

func (r *RoomCreateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return utils.ValidateStruct(r)
}

// RoomUpdateRequest patches only the fields that are present
type RoomUpdateRequest struct {
	Name          *string  `json:"name" validate:"omitempty,min=1"`
	Description   *string  `json:"description"`
	PricePerNight *float64 `json:"price_per_night" validate:"omitempty,gte=0"`
	Capacity      *int     `json:"capacity" validate:"omitempty,gte=1"`
	IsActive      *bool    `json:"is_active"`
}

func (r *RoomUpdateRequest) Validate() error {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	return utils.ValidateStruct(r)
}

type AvailabilityResponse struct {
	RoomID    uint   `json:"room_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
}
