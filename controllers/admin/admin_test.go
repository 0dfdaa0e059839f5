package admin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"guesthouse-booking/config"
	"guesthouse-booking/constants"
	"guesthouse-booking/middleware"
	bookingModel "guesthouse-booking/models/booking"
	roomModel "guesthouse-booking/models/room"
	"guesthouse-booking/repository"
	"guesthouse-booking/services/availability"
	bookingService "guesthouse-booking/services/booking"
	"guesthouse-booking/types"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminEnv struct {
	app   *fiber.App
	store *repository.MemoryStore
	room  *roomModel.Room
	token string
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	room := store.PutRoom(roomModel.Room{Name: "Garden", PricePerNight: 50, Capacity: 2, IsActive: true})
	coord := bookingService.NewCoordinator(store, availability.NewChecker(), nil, bookingService.Options{
		Mode: config.ModePayLater,
		Now:  func() time.Time { return time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC) },
	})

	jwtAuth := middleware.NewJWTAuth("admin-test", time.Hour)
	token, _, err := jwtAuth.IssueToken(1, "owner", []string{constants.PermAdminFull})
	require.NoError(t, err)

	h := NewAdminBookingController(coord)
	app := fiber.New()
	admin := app.Group("/admin", jwtAuth.RequirePermissions(constants.PermAdminFull))
	admin.Get("/bookings", h.Index)
	admin.Get("/bookings/flagged", h.Flagged)
	admin.Post("/bookings", h.Store)
	admin.Get("/bookings/:id", h.Show)
	admin.Post("/bookings/:id/cancel", h.Cancel)
	admin.Delete("/bookings/:id", h.Destroy)
	return &adminEnv{app: app, store: store, room: room, token: token}
}

func (e *adminEnv) call(t *testing.T, method, path, body string) (int, types.ApiResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out types.ApiResponse
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func (e *adminEnv) walkIn(t *testing.T, in, out string) (int, map[string]interface{}) {
	t.Helper()
	body := fmt.Sprintf(`{"room_id":%d,"check_in":%q,"check_out":%q,"guest_name":"Walk In","guest_email":"walk@example.com"}`, e.room.ID, in, out)
	status, resp := e.call(t, "POST", "/admin/bookings", body)
	data, _ := resp.Data.(map[string]interface{})
	return status, data
}

func TestAdminRequiresToken(t *testing.T) {
	env := newAdminEnv(t)
	env.token = ""
	status, _ := env.call(t, "GET", "/admin/bookings", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestWalkInAndListing(t *testing.T) {
	env := newAdminEnv(t)

	status, b := env.walkIn(t, "2025-01-10", "2025-01-12")
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "PAID", b["status"])

	status, _ = env.walkIn(t, "2025-01-11", "2025-01-13")
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = env.walkIn(t, "2025-01-12", "2025-01-13")
	require.Equal(t, fiber.StatusCreated, status)

	status, out := env.call(t, "GET", fmt.Sprintf("/admin/bookings?status=paid&room_id=%d&size=1", env.room.ID), "")
	require.Equal(t, fiber.StatusOK, status)
	page := out.Data.(map[string]interface{})
	assert.EqualValues(t, 2, page["total"])
	assert.EqualValues(t, 1, page["size"])
	assert.Len(t, page["items"], 1)

	status, _ = env.call(t, "GET", "/admin/bookings?status=maybe", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, out = env.call(t, "GET", "/admin/bookings/flagged", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, out.Data.(map[string]interface{})["total"])
}

func TestCancelShowAndDelete(t *testing.T) {
	env := newAdminEnv(t)
	_, b := env.walkIn(t, "2025-01-10", "2025-01-12")
	id := uint(b["id"].(float64))
	path := fmt.Sprintf("/admin/bookings/%d", id)

	status, out := env.call(t, "POST", path+"/cancel", `{"reason":"guest called"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "CANCELLED", out.Data.(map[string]interface{})["status"])

	// cancelling twice is harmless
	status, _ = env.call(t, "POST", path+"/cancel", "")
	require.Equal(t, fiber.StatusOK, status)

	status, out = env.call(t, "GET", path, "")
	require.Equal(t, fiber.StatusOK, status)
	events := out.Data.(map[string]interface{})["events"].([]interface{})
	require.Len(t, events, 2)
	last := events[1].(map[string]interface{})
	assert.Equal(t, "CANCELLED", last["to_status"])
	assert.Equal(t, "admin:owner", last["created_by"])

	// the range is free again
	status, _ = env.walkIn(t, "2025-01-10", "2025-01-12")
	assert.Equal(t, fiber.StatusCreated, status)

	status, _ = env.call(t, "DELETE", path, "")
	require.Equal(t, fiber.StatusOK, status)
	status, _ = env.call(t, "GET", path, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = env.call(t, "GET", "/admin/bookings/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	all := env.store.AllBookings()
	require.Len(t, all, 1)
	assert.Equal(t, bookingModel.BookingStatusPaid, all[0].Status)
}
