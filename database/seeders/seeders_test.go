package seeders

import (
	"context"
	"testing"

	"guesthouse-booking/constants"
	"guesthouse-booking/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	assert.Error(t, SeedAdmin(ctx, store, "", "longenough"))
	assert.Error(t, SeedAdmin(ctx, store, "owner", "short"))

	require.NoError(t, SeedAdmin(ctx, store, "owner", "first-password"))
	first, err := store.FindAdminByUsername(ctx, "owner")
	require.NoError(t, err)
	assert.True(t, first.Permissions.Has(constants.PermAdminFull))

	// running again rotates the password in place
	require.NoError(t, SeedAdmin(ctx, store, "owner", "second-password"))
	second, err := store.FindAdminByUsername(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(second.PasswordHash), []byte("second-password")))
}

func TestSeedRoomsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	n, err := SeedRooms(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, len(SampleRooms), n)

	n, err = SeedRooms(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, n)

	rooms, err := store.ListRooms(ctx, false)
	require.NoError(t, err)
	assert.Len(t, rooms, len(SampleRooms))
}
