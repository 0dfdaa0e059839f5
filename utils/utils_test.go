package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublicID(t *testing.T) {
	a, b := NewPublicID(), NewPublicID()
	assert.NotEqual(t, a, b)
	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2025-01-10T14:00:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 10, 13, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/01/2025")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestMonthBounds(t *testing.T) {
	m, err := ParseMonth("2024-02")
	require.NoError(t, err)
	start, end := MonthBounds(m.Add(36 * time.Hour))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestValidateStruct(t *testing.T) {
	type guest struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone" validate:"omitempty,phone"`
		Count int    `json:"count" validate:"gte=1"`
	}
	ok := guest{Name: "Ada", Email: "guest@example.com", Count: 1}

	tests := []struct {
		name    string
		mutate  func(g *guest)
		wantErr string
	}{
		{"valid", func(g *guest) {}, ""},
		{"spaced phone", func(g *guest) { g.Phone = "+234 803 123 4567" }, ""},
		{"local phone", func(g *guest) { g.Phone = "08031234567" }, ""},
		{"bad phone", func(g *guest) { g.Phone = "call me" }, "phone is invalid"},
		{"missing name", func(g *guest) { g.Name = "" }, "name is required"},
		{"display-name email", func(g *guest) { g.Email = "Guest <guest@example.com>" }, "email is invalid"},
		{"bad email", func(g *guest) { g.Email = "nope" }, "email is invalid"},
		{"too few", func(g *guest) { g.Count = 0 }, "count must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ok
			tt.mutate(&g)
			err := ValidateStruct(g)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
