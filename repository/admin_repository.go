package repository

import (
	"context"
	"fmt"
	"time"

	adminModel "guesthouse-booking/models/admin"

	"gorm.io/gorm/clause"
)

// AdminStore holds back-office accounts
type AdminStore interface {
	FindAdminByUsername(ctx context.Context, username string) (*adminModel.Admin, error)
	// UpsertAdmin creates the account or replaces its password and permissions
	UpsertAdmin(ctx context.Context, a *adminModel.Admin) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

func (s *GormStore) FindAdminByUsername(ctx context.Context, username string) (*adminModel.Admin, error) {
	var a adminModel.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, translate(err, "find admin")
	}
	return &a, nil
}

func (s *GormStore) UpsertAdmin(ctx context.Context, a *adminModel.Admin) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "legal_name", "permissions", "updated_at"}),
	}).Create(a).Error
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

func (s *GormStore) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&adminModel.Admin{}).Where("id = ?", id).Update("last_login_at", at)
	if result.Error != nil {
		return fmt.Errorf("touch last login: %w", result.Error)
	}
	return nil
}
