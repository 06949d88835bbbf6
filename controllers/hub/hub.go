package hub

import (
	"errors"
	"fmt"

	"calendar-booking/logger"
	hubModel "calendar-booking/models/hub"
	"calendar-booking/types"
	hubTypes "calendar-booking/types/hub"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HubController handles hub-related HTTP requests
type HubController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

// NewHubController creates a new hub controller
func NewHubController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *HubController {
	return &HubController{
		DB:     db,
		Logger: asyncLogger,
	}
}

// Store creates a new hub
func (hc *HubController) Store(c *fiber.Ctx) error {
	var req hubTypes.HubCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	h := hubModel.Hub{
		Name:                req.Name,
		Location:            req.Location,
		Timezone:            "UTC",
		IsActive:            true,
		OperatingHoursStart: req.OperatingHoursStart,
		OperatingHoursEnd:   req.OperatingHoursEnd,
		OperatingDays:       "1,2,3,4,5",
		Capacity:            1,
	}
	if req.Address != "" {
		h.Address = &req.Address
	}
	if req.Timezone != "" {
		h.Timezone = req.Timezone
	}
	if req.OperatingDays != "" {
		h.OperatingDays = req.OperatingDays
	}
	if req.Capacity > 0 {
		h.Capacity = req.Capacity
	}
	if req.Description != "" {
		h.Description = &req.Description
	}
	if req.ContactInfo != "" {
		h.ContactInfo = &req.ContactInfo
	}

	if err := hc.DB.WithContext(c.Context()).Create(&h).Error; err != nil {
		logger.Error("Failed to create hub", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to create hub",
			Data:    nil,
		})
	}

	logger.Success(fmt.Sprintf("Hub %s created", h.Name))
	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Hub created successfully",
		Data:    h,
	})
}

// Index lists hubs. Pass ?include_inactive=true to see deactivated hubs;
// limit and offset paginate.
func (hc *HubController) Index(c *fiber.Ctx) error {
	query := hc.DB.WithContext(c.Context()).Order("name ASC")
	if c.Query("include_inactive") != "true" {
		query = query.Where("is_active = ?", true)
	}
	if limit := c.QueryInt("limit", 0); limit > 0 {
		query = query.Limit(limit).Offset(c.QueryInt("offset", 0))
	}

	var hubs []hubModel.Hub
	if err := query.Find(&hubs).Error; err != nil {
		logger.Error("Failed to list hubs", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: fmt.Sprintf("Found %d hubs", len(hubs)),
		Data:    hubs,
	})
}

// Show returns a single hub by ID
func (hc *HubController) Show(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid hub ID",
			Data:    nil,
		})
	}

	var h hubModel.Hub
	if err := hc.DB.WithContext(c.Context()).First(&h, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Hub not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load hub", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Hub retrieved successfully",
		Data:    h,
	})
}

// Update applies a partial update to a hub. Only the provided fields change.
func (hc *HubController) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid hub ID",
			Data:    nil,
		})
	}

	var req hubTypes.HubUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: err.Error(),
			Data:    nil,
		})
	}

	var h hubModel.Hub
	if err := hc.DB.WithContext(c.Context()).First(&h, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
				Status:  fiber.StatusNotFound,
				Message: "Hub not found",
				Data:    nil,
			})
		}
		logger.Error("Failed to load hub", err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Database error",
			Data:    nil,
		})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Timezone != nil {
		updates["timezone"] = *req.Timezone
	}
	if req.OperatingHoursStart != nil {
		updates["operating_hours_start"] = *req.OperatingHoursStart
	}
	if req.OperatingHoursEnd != nil {
		updates["operating_hours_end"] = *req.OperatingHoursEnd
	}
	if req.OperatingDays != nil {
		updates["operating_days"] = *req.OperatingDays
	}
	if req.Capacity != nil {
		updates["capacity"] = *req.Capacity
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ContactInfo != nil {
		updates["contact_info"] = *req.ContactInfo
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := hc.DB.WithContext(c.Context()).Model(&h).Updates(updates).Error; err != nil {
			logger.Error("Failed to update hub", err)
			return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
				Status:  fiber.StatusInternalServerError,
				Message: "Failed to update hub",
				Data:    nil,
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Hub updated successfully",
		Data:    h,
	})
}

// Deactivate marks a hub inactive. Hubs are never deleted; existing slots
// and bookings keep their history.
func (hc *HubController) Deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid hub ID",
			Data:    nil,
		})
	}

	res := hc.DB.WithContext(c.Context()).
		Model(&hubModel.Hub{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		logger.Error("Failed to deactivate hub", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Failed to deactivate hub",
			Data:    nil,
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(types.ApiResponse{
			Status:  fiber.StatusNotFound,
			Message: "Hub not found",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Hub deactivated successfully",
		Data:    nil,
	})
}
