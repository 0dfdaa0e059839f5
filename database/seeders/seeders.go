package seeders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"guesthouse-booking/constants"
	"guesthouse-booking/logger"
	adminModel "guesthouse-booking/models/admin"
	roomModel "guesthouse-booking/models/room"
	"guesthouse-booking/repository"

	"golang.org/x/crypto/bcrypt"
)

// SampleRooms is the catalogue used for local development
var SampleRooms = []roomModel.Room{
	{Name: "Garden Room", Description: "Ground floor double opening onto the garden", PricePerNight: 45000, Capacity: 2, IsActive: true},
	{Name: "Balcony Suite", Description: "Queen bed, private balcony and ensuite", PricePerNight: 65000, Capacity: 3, IsActive: true},
	{Name: "Family Room", Description: "One double and two single beds", PricePerNight: 80000, Capacity: 4, IsActive: true},
	{Name: "Attic Single", Description: "Compact single under the eaves", PricePerNight: 25000, Capacity: 1, IsActive: true},
}

// SeedAdmin creates the bootstrap admin, or resets its password and grants
func SeedAdmin(ctx context.Context, admins repository.AdminStore, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("admin username and password are required")
	}
	if len(password) < 8 {
		return errors.New("admin password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &adminModel.Admin{
		Username:     username,
		PasswordHash: string(hash),
		LegalName:    username,
		Permissions:  adminModel.StringSlice(constants.AdminPermissions),
	}
	if err := admins.UpsertAdmin(ctx, admin); err != nil {
		return err
	}
	logger.Success(fmt.Sprintf("Admin %s is ready", username))
	return nil
}

// SeedRooms inserts the sample rooms that are missing by name
func SeedRooms(ctx context.Context, rooms repository.RoomStore) (int, error) {
	existing, err := rooms.ListRooms(ctx, false)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[r.Name] = true
	}

	inserted := 0
	for _, sample := range SampleRooms {
		if have[sample.Name] {
			continue
		}
		r := sample
		if err := rooms.CreateRoom(ctx, &r); err != nil {
			return inserted, fmt.Errorf("seed room %s: %w", r.Name, err)
		}
		logger.Info(fmt.Sprintf("Added room: %s", r.Name))
		inserted++
	}
	logger.Success(fmt.Sprintf("Seeding completed, %d room(s) inserted", inserted))
	return inserted, nil
}
