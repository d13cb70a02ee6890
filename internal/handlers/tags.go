package handlers

import (
	"strings"

	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TagsHandler struct {
	DB *gorm.DB
}

func NewTagsHandler(db *gorm.DB) *TagsHandler {
	return &TagsHandler{DB: db}
}

type createTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *TagsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createTagRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	var existing models.Tag
	if err := h.DB.First(&existing, "LOWER(name) = ?", strings.ToLower(name)).Error; err == nil {
		return utils.Success(c, fiber.StatusOK, existing)
	} else if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing tag")
	}

	tag := models.Tag{
		Name:        name,
		Color:       strings.TrimSpace(req.Color),
		CreatedByID: currentUser.ID,
	}
	if err := h.DB.Create(&tag).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating tag")
	}

	return utils.Success(c, fiber.StatusCreated, tag)
}

func (h *TagsHandler) List(c *fiber.Ctx) error {
	var tags []models.Tag
	if err := h.DB.Order("name ASC").Find(&tags).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing tags")
	}
	return utils.Success(c, fiber.StatusOK, tags)
}
