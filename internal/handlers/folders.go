package handlers

import (
	"strings"

	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/internal/stores"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FoldersHandler struct {
	Folders   *stores.Folders
	Documents *stores.Documents
	Users     *stores.Users
	Access    *services.AccessService
	Service   *services.FolderService
	Deleter   *services.DeleteService
	Audit     *services.AuditService
}

func NewFoldersHandler(folders *stores.Folders, documents *stores.Documents, users *stores.Users, access *services.AccessService, service *services.FolderService, deleter *services.DeleteService, audit *services.AuditService) *FoldersHandler {
	return &FoldersHandler{
		Folders:   folders,
		Documents: documents,
		Users:     users,
		Access:    access,
		Service:   service,
		Deleter:   deleter,
		Audit:     audit,
	}
}

type createFolderRequest struct {
	Name           string   `json:"name"`
	ParentID       *string  `json:"parentID"`
	IsRestricted   bool     `json:"isRestricted"`
	AllowedUserIDs []string `json:"allowedUserIDs"`
}

func (h *FoldersHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		parsed, err := parseUUID(*req.ParentID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid parentID")
		}
		parentID = &parsed

		parent, err := h.Folders.Get(c.Context(), parsed)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusNotFound, "parent folder not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading parent folder")
		}
		if !h.Access.CanAccess(parent, currentUser.Actor()) {
			return utils.Error(c, fiber.StatusForbidden, "no permission to create in parent folder")
		}
	}

	allowed, err := parseUUIDList(req.AllowedUserIDs)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid allowedUserIDs")
	}

	folder := models.Folder{
		Name:           name,
		ParentID:       parentID,
		IsRestricted:   req.IsRestricted,
		AllowedUserIDs: allowed,
		CreatedByID:    currentUser.ID,
	}
	if err := h.Folders.Create(c.Context(), &folder); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating folder")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.create",
		ResourceType: "folder",
		ResourceID:   &folder.ID,
		Details: map[string]interface{}{
			"folder_name":   name,
			"is_restricted": req.IsRestricted,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, folder)
}

// Tree returns the actor's accessible folders in nested form. Folders
// whose parent is invisible surface as roots.
func (h *FoldersHandler) Tree(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	tree, err := h.Access.FolderTree(c.Context(), currentUser.Actor())
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed building folder tree")
	}
	return utils.Success(c, fiber.StatusOK, tree)
}

func (h *FoldersHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	folder, err := h.Folders.Get(c.Context(), folderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}

	if !h.Access.CanAccess(folder, currentUser.Actor()) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	return utils.Success(c, fiber.StatusOK, folder)
}

// Contents lists the child folders and the latest document versions
// directly inside the folder.
func (h *FoldersHandler) Contents(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	folder, err := h.Folders.Get(c.Context(), folderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}
	if !h.Access.CanAccess(folder, currentUser.Actor()) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	children, err := h.Folders.Children(c.Context(), folderID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing child folders")
	}

	accessible := make([]models.Folder, 0, len(children))
	for _, child := range children {
		if h.Access.CanAccess(&child, currentUser.Actor()) {
			accessible = append(accessible, child)
		}
	}

	documents, err := h.Documents.LatestInFolder(c.Context(), folderID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing documents")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"folder":    folder,
		"folders":   accessible,
		"documents": documents,
	})
}

type updateAccessRequest struct {
	IsRestricted   bool     `json:"isRestricted"`
	AllowedUserIDs []string `json:"allowedUserIDs"`
}

// UpdateAccess sets the folder's restriction state. Restricting cascades
// the identical settings to every descendant; un-restricting applies to
// the folder alone.
func (h *FoldersHandler) UpdateAccess(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var req updateAccessRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	allowed, err := parseUUIDList(req.AllowedUserIDs)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid allowedUserIDs")
	}

	folder, result, err := h.Service.UpdateAccess(c.Context(), folderID, services.AccessUpdate{
		IsRestricted:   req.IsRestricted,
		AllowedUserIDs: allowed,
	}, currentUser.Actor())
	if err != nil {
		return serviceError(c, err, "failed updating folder access")
	}

	logger.InfoWithUser(currentUser.ID.String(), "folder_access_updated", map[string]interface{}{
		"folder_id":        folderID.String(),
		"is_restricted":    req.IsRestricted,
		"allowed_users":    len(allowed),
		"cascaded":         result.Succeeded,
		"cascade_failures": len(result.Failures),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.access_update",
		ResourceType: "folder",
		ResourceID:   &folderID,
		Details: map[string]interface{}{
			"is_restricted": req.IsRestricted,
			"cascaded":      result.Succeeded,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"folder":   folder,
		"cascaded": result.Succeeded,
		"failures": result.Failures,
	})
}

type grantPermissionRequest struct {
	UserID string `json:"userID"`
}

func (h *FoldersHandler) GrantPermission(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	var req grantPermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	userID, err := parseUUID(req.UserID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid userID")
	}

	folder, err := h.Folders.Get(c.Context(), folderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "folder not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
	}
	if !h.Access.CanAccess(folder, currentUser.Actor()) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	if _, err := h.Users.Get(c.Context(), userID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if folder.HasPermissionFor(userID) {
		return utils.Error(c, fiber.StatusConflict, "user already has permission")
	}

	perm := models.FolderPermission{
		FolderID:    folderID,
		UserID:      userID,
		GrantedByID: currentUser.ID,
	}
	if err := h.Folders.GrantPermission(c.Context(), &perm); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed granting permission")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.permission_grant",
		ResourceType: "folder",
		ResourceID:   &folderID,
		Details: map[string]interface{}{
			"granted_to": userID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, perm)
}

// Delete removes the folder, its entire descendant subtree, every
// document version inside, and the backing blobs. The report separates
// the primary outcome from secondary cleanup failures.
func (h *FoldersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	folderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid folder id")
	}

	report, err := h.Deleter.DeleteFolderTree(c.Context(), folderID, currentUser.Actor())
	if err != nil {
		return serviceError(c, err, "failed deleting folder")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "folder.delete",
		ResourceType: "folder",
		ResourceID:   &folderID,
		Details: map[string]interface{}{
			"folders_deleted":   report.FoldersDeleted,
			"documents_deleted": report.DocumentsDeleted,
			"failures":          len(report.Failures),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, report)
}

func parseUUIDList(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := parseUUID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
