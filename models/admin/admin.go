package admin

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Admin is a back-office account allowed to manage rooms and bookings
type Admin struct {
	ID           uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string      `gorm:"type:varchar(255);not null;unique" json:"username"`
	PasswordHash string      `gorm:"type:varchar(255);not null" json:"-"`
	LegalName    string      `gorm:"type:varchar(255)" json:"legal_name"`
	Permissions  StringSlice `gorm:"type:json" json:"permissions"` // Use JSON column to store slice of strings
	LastLoginAt  *time.Time  `json:"last_login_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// StringSlice is a custom type to handle JSON serialization for PostgreSQL
type StringSlice []string

// Scan implements the Scanner interface for database deserialization
func (ss *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*ss = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, ss)
}

// Value implements the driver Valuer interface for database serialization
func (ss StringSlice) Value() (driver.Value, error) {
	if ss == nil {
		return nil, nil
	}
	return json.Marshal(ss)
}

// Has reports whether the admin holds the permission
func (ss StringSlice) Has(permission string) bool {
	for _, p := range ss {
		if p == permission {
			return true
		}
	}
	return false
}
