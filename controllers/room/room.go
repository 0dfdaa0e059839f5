package room

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"guesthouse-booking/controllers/response"
	"guesthouse-booking/logger"
	roomModel "guesthouse-booking/models/room"
	"guesthouse-booking/repository"
	bookingService "guesthouse-booking/services/booking"
	"guesthouse-booking/services/media"
	roomTypes "guesthouse-booking/types/room"
	"guesthouse-booking/utils"

	"github.com/gofiber/fiber/v2"
)

const maxImageSize = 10 << 20

// Cleaner schedules media-host deletes
type Cleaner interface {
	Enqueue(publicID string) error
}

// RoomController serves the public catalogue and the admin room routes
type RoomController struct {
	rooms       repository.RoomStore
	coordinator *bookingService.Coordinator
	storage     media.Storage
	cleanup     Cleaner
}

func NewRoomController(rooms repository.RoomStore, coordinator *bookingService.Coordinator, storage media.Storage, cleanup Cleaner) *RoomController {
	if storage == nil {
		storage = media.DisabledStorage{}
	}
	return &RoomController{rooms: rooms, coordinator: coordinator, storage: storage, cleanup: cleanup}
}

func roomID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

// Index lists active rooms
func (rc *RoomController) Index(c *fiber.Ctx) error {
	rooms, err := rc.rooms.ListRooms(c.Context(), true)
	if err != nil {
		return response.Error(c, err, "Failed to list rooms")
	}
	return response.JSON(c, fiber.StatusOK, "Rooms retrieved successfully", rooms)
}

// AdminIndex lists every room including inactive ones
func (rc *RoomController) AdminIndex(c *fiber.Ctx) error {
	rooms, err := rc.rooms.ListRooms(c.Context(), false)
	if err != nil {
		return response.Error(c, err, "Failed to list rooms")
	}
	return response.JSON(c, fiber.StatusOK, "Rooms retrieved successfully", rooms)
}

func (rc *RoomController) Show(c *fiber.Ctx) error {
	id, err := roomID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	r, err := rc.rooms.FindRoomWithImages(c.Context(), id)
	if err != nil {
		return response.Error(c, err, "Failed to load room")
	}
	if !r.IsActive {
		return response.JSON(c, fiber.StatusNotFound, "Room not found", nil)
	}
	return response.JSON(c, fiber.StatusOK, "Room retrieved successfully", r)
}

func (rc *RoomController) Availability(c *fiber.Ctx) error {
	id, err := roomID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	checkIn, err := utils.ParseDate(c.Query("check_in"))
	if err != nil {
		return response.BadRequest(c, "check_in: "+err.Error())
	}
	checkOut, err := utils.ParseDate(c.Query("check_out"))
	if err != nil {
		return response.BadRequest(c, "check_out: "+err.Error())
	}

	ok, err := rc.coordinator.CheckAvailability(c.Context(), id, checkIn, checkOut)
	if err != nil {
		return response.Error(c, err, "Failed to check availability")
	}
	return response.JSON(c, fiber.StatusOK, "Availability checked", roomTypes.AvailabilityResponse{
		RoomID:    id,
		CheckIn:   checkIn.Format(utils.DateLayout),
		CheckOut:  checkOut.Format(utils.DateLayout),
		Available: ok,
	})
}

func (rc *RoomController) Calendar(c *fiber.Ctx) error {
	id, err := roomID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	month, err := utils.ParseMonth(c.Query("month"))
	if err != nil {
		return response.BadRequest(c, "month: "+err.Error())
	}
	ranges, err := rc.coordinator.Calendar(c.Context(), id, month)
	if err != nil {
		return response.Error(c, err, "Failed to load calendar")
	}
	return response.JSON(c, fiber.StatusOK, "Calendar retrieved successfully", ranges)
}

func (rc *RoomController) Store(c *fiber.Ctx) error {
	var req roomTypes.RoomCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return response.BadRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return response.BadRequest(c, err.Error())
	}

	r := &roomModel.Room{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		PricePerNight: req.PricePerNight,
		Capacity:      req.Capacity,
		IsActive:      true,
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	if err := rc.rooms.CreateRoom(c.Context(), r); err != nil {
		return response.Error(c, err, "Failed to create room")
	}
	logger.Success(fmt.Sprintf("Room %d (%s) created", r.ID, r.Name))
	return response.JSON(c, fiber.StatusCreated, "Room created successfully", r)
}

func (rc *RoomController) Update(c *fiber.Ctx) error {
	id, err := roomID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	var req roomTypes.RoomUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return response.BadRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return response.BadRequest(c, err.Error())
	}

	r, err := rc.rooms.FindRoomWithImages(c.Context(), id)
	if err != nil {
		return response.Error(c, err, "Failed to load room")
	}
	if req.Name != nil {
		r.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.PricePerNight != nil {
		r.PricePerNight = *req.PricePerNight
	}
	if req.Capacity != nil {
		r.Capacity = *req.Capacity
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}
	if err := rc.rooms.UpdateRoom(c.Context(), r); err != nil {
		return response.Error(c, err, "Failed to update room")
	}
	return response.JSON(c, fiber.StatusOK, "Room updated successfully", r)
}

// Destroy deletes a room without booking history and schedules its images for removal
func (rc *RoomController) Destroy(c *fiber.Ctx) error {
	id, err := roomID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	r, err := rc.rooms.FindRoomWithImages(c.Context(), id)
	if err != nil {
		return response.Error(c, err, "Failed to load room")
	}
	if err := rc.rooms.DeleteRoom(c.Context(), id); err != nil {
		return response.Error(c, err, "Failed to delete room")
	}
	for _, img := range r.Images {
		rc.scheduleCleanup(img.MediaPublicID)
	}
	logger.Warning(fmt.Sprintf("Room %d deleted", id))
	return response.JSON(c, fiber.StatusOK, "Room deleted successfully", nil)
}

// UploadImage stores a multipart "image" file on the media host
func (rc *RoomController) UploadImage(c *fiber.Ctx) error {
	id, err := roomID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	if _, err := rc.rooms.FindRoomWithImages(c.Context(), id); err != nil {
		return response.Error(c, err, "Failed to load room")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return response.BadRequest(c, "image file is required")
	}
	if file.Size > maxImageSize {
		return response.BadRequest(c, "image is larger than 10MB")
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return response.BadRequest(c, "file must be an image")
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, err, "Failed to read upload")
	}
	defer src.Close()

	uploaded, err := rc.storage.Upload(c.Context(), src, file.Filename)
	if err != nil {
		if errors.Is(err, media.ErrDisabled) {
			return response.Error(c, err, "Image uploads are not configured")
		}
		logger.Error("Image upload failed", err)
		return response.JSON(c, fiber.StatusBadGateway, "Image host is unavailable, please retry", nil)
	}

	img := &roomModel.RoomImage{RoomID: id, URL: uploaded.URL, MediaPublicID: uploaded.PublicID}
	if err := rc.rooms.AddRoomImage(c.Context(), img); err != nil {
		rc.scheduleCleanup(uploaded.PublicID)
		return response.Error(c, err, "Failed to save room image")
	}
	return response.JSON(c, fiber.StatusCreated, "Image uploaded successfully", img)
}

// DeleteImage removes the row first; the hosted file is deleted in the background
func (rc *RoomController) DeleteImage(c *fiber.Ctx) error {
	id, err := roomID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	imageID, err := roomID(c, "imageId")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	img, err := rc.rooms.FindRoomImage(c.Context(), id, imageID)
	if err != nil {
		return response.Error(c, err, "Failed to load image")
	}
	if err := rc.rooms.DeleteRoomImage(c.Context(), img.ID); err != nil {
		return response.Error(c, err, "Failed to delete image")
	}
	rc.scheduleCleanup(img.MediaPublicID)
	return response.JSON(c, fiber.StatusOK, "Image deleted successfully", nil)
}

func (rc *RoomController) scheduleCleanup(publicID string) {
	if rc.cleanup == nil || publicID == "" {
		return
	}
	if err := rc.cleanup.Enqueue(publicID); err != nil {
		logger.Error(fmt.Sprintf("Could not schedule delete of %s; remove it from the media host by hand", publicID), err)
	}
}
