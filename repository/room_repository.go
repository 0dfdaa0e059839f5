package repository

import (
	"context"
	"errors"
	"fmt"

	bookingModel "guesthouse-booking/models/booking"
	roomModel "guesthouse-booking/models/room"

	"gorm.io/gorm"
)

// ErrRoomInUse is returned when a room still has bookings attached
var ErrRoomInUse = errors.New("room has bookings")

// RoomStore is the room catalogue boundary used by the admin and public room routes
type RoomStore interface {
	ListRooms(ctx context.Context, activeOnly bool) ([]roomModel.Room, error)
	FindRoomWithImages(ctx context.Context, id uint) (*roomModel.Room, error)
	CreateRoom(ctx context.Context, r *roomModel.Room) error
	UpdateRoom(ctx context.Context, r *roomModel.Room) error
	DeleteRoom(ctx context.Context, id uint) error

	AddRoomImage(ctx context.Context, img *roomModel.RoomImage) error
	FindRoomImage(ctx context.Context, roomID, imageID uint) (*roomModel.RoomImage, error)
	DeleteRoomImage(ctx context.Context, imageID uint) error
}

func imagesByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

func (s *GormStore) ListRooms(ctx context.Context, activeOnly bool) ([]roomModel.Room, error) {
	var rooms []roomModel.Room
	qb := s.db.WithContext(ctx).Preload("Images", imagesByPosition)
	if activeOnly {
		qb = qb.Where("is_active = ?", true)
	}
	if err := qb.Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (s *GormStore) FindRoomWithImages(ctx context.Context, id uint) (*roomModel.Room, error) {
	var r roomModel.Room
	if err := s.db.WithContext(ctx).Preload("Images", imagesByPosition).First(&r, id).Error; err != nil {
		return nil, translate(err, "find room")
	}
	return &r, nil
}

func (s *GormStore) CreateRoom(ctx context.Context, r *roomModel.Room) error {
	if err := s.db.WithContext(ctx).Omit("Images").Create(r).Error; err != nil {
		return translate(err, "create room")
	}
	return nil
}

func (s *GormStore) UpdateRoom(ctx context.Context, r *roomModel.Room) error {
	result := s.db.WithContext(ctx).Model(&roomModel.Room{}).
		Where("id = ?", r.ID).
		Updates(map[string]interface{}{
			"name":            r.Name,
			"description":     r.Description,
			"price_per_night": r.PricePerNight,
			"capacity":        r.Capacity,
			"is_active":       r.IsActive,
		})
	if result.Error != nil {
		return translate(result.Error, "update room")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRoom removes a room and its image rows. Rooms with booking history
// must be deactivated instead.
func (s *GormStore) DeleteRoom(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r roomModel.Room
		if err := tx.Clauses(lockingUpdate).First(&r, id).Error; err != nil {
			return translate(err, "lock room")
		}

		var count int64
		if err := tx.Model(&bookingModel.Booking{}).Where("room_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("count room bookings: %w", err)
		}
		if count > 0 {
			return ErrRoomInUse
		}

		if err := tx.Where("room_id = ?", id).Delete(&roomModel.RoomImage{}).Error; err != nil {
			return fmt.Errorf("delete room images: %w", err)
		}
		if err := tx.Delete(&roomModel.Room{}, id).Error; err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		return nil
	})
}

func (s *GormStore) AddRoomImage(ctx context.Context, img *roomModel.RoomImage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next struct{ N int }
		err := tx.Model(&roomModel.RoomImage{}).
			Select("COALESCE(MAX(position) + 1, 0) AS n").
			Where("room_id = ?", img.RoomID).
			Scan(&next).Error
		if err != nil {
			return fmt.Errorf("next image position: %w", err)
		}
		img.Position = next.N
		if err := tx.Create(img).Error; err != nil {
			return translate(err, "add room image")
		}
		return nil
	})
}

func (s *GormStore) FindRoomImage(ctx context.Context, roomID, imageID uint) (*roomModel.RoomImage, error) {
	var img roomModel.RoomImage
	err := s.db.WithContext(ctx).
		Where("id = ? AND room_id = ?", imageID, roomID).
		First(&img).Error
	if err != nil {
		return nil, translate(err, "find room image")
	}
	return &img, nil
}

func (s *GormStore) DeleteRoomImage(ctx context.Context, imageID uint) error {
	result := s.db.WithContext(ctx).Delete(&roomModel.RoomImage{}, imageID)
	if result.Error != nil {
		return fmt.Errorf("delete room image: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
