package handlers

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/docuvault/backend/internal/middleware"
	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/services"
	"github.com/docuvault/backend/internal/storage"
	"github.com/docuvault/backend/internal/stores"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/docuvault/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentsHandler struct {
	DB       *gorm.DB
	Storage  storage.Store
	Versions *services.VersionService
	Access   *services.AccessService
	Folders  *stores.Folders
	Tags     *stores.Tags
	Audit    *services.AuditService
}

func NewDocumentsHandler(db *gorm.DB, storageClient storage.Store, versions *services.VersionService, access *services.AccessService, folders *stores.Folders, tags *stores.Tags, audit *services.AuditService) *DocumentsHandler {
	return &DocumentsHandler{
		DB:       db,
		Storage:  storageClient,
		Versions: versions,
		Access:   access,
		Folders:  folders,
		Tags:     tags,
		Audit:    audit,
	}
}

// Upload stores the blob first, then creates the version-1 record. A
// failed record insert removes the orphaned blob.
func (h *DocumentsHandler) Upload(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	var folderID *uuid.UUID
	folderIDRaw := strings.TrimSpace(c.FormValue("folderID"))
	if folderIDRaw != "" {
		parsed, parseErr := parseUUID(folderIDRaw)
		if parseErr != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid folderID")
		}
		folderID = &parsed

		folder, err := h.Folders.Get(c.Context(), parsed)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.Error(c, fiber.StatusNotFound, "folder not found")
			}
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading folder")
		}
		if !h.Access.CanAccess(folder, currentUser.Actor()) {
			logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
				"action":    "document_upload",
				"folder_id": folder.ID.String(),
			})
			return utils.Error(c, fiber.StatusForbidden, "no permission to upload to folder")
		}
	}

	tags, err := h.resolveTags(c)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid tagIDs")
	}

	input, objectName, err := h.storeBlob(c, currentUser, fileHeader)
	if err != nil {
		return err
	}
	input.Description = strings.TrimSpace(c.FormValue("description"))

	doc, err := h.Versions.CreateDocument(c.Context(), input, folderID, tags, currentUser.Actor())
	if err != nil {
		_ = h.Storage.Delete(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating document record")
	}

	logger.InfoWithUser(currentUser.ID.String(), "document_uploaded", map[string]interface{}{
		"document_id":  doc.ID.String(),
		"name":         doc.Name,
		"size":         doc.Size,
		"mime_type":    doc.MimeType,
		"storage_path": objectName,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "document.upload",
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"name": doc.Name,
			"size": doc.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, doc)
}

func (h *DocumentsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	docID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	doc, err := h.Versions.Documents.Get(c.Context(), docID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}

	if !h.canAccessDocument(c, doc, currentUser) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	return utils.Success(c, fiber.StatusOK, doc)
}

func (h *DocumentsHandler) Download(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	docID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	doc, err := h.Versions.Documents.Get(c.Context(), docID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}

	if !h.canAccessDocument(c, doc, currentUser) {
		logger.WarnWithUser(currentUser.ID.String(), "permission_denied", map[string]interface{}{
			"action":      "document_download",
			"document_id": doc.ID.String(),
		})
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	obj, info, err := h.Storage.Download(c.Context(), doc.StoragePath)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed downloading document")
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = doc.MimeType
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "document.download",
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"name": doc.Name,
			"size": doc.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	c.Set("Content-Type", contentType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	return c.SendStream(obj, int(info.Size))
}

// ListVersions returns the full lineage containing :id, newest first.
func (h *DocumentsHandler) ListVersions(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	docID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	doc, err := h.Versions.Documents.Get(c.Context(), docID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}
	if !h.canAccessDocument(c, doc, currentUser) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	versions, err := h.Versions.ListVersions(c.Context(), docID)
	if err != nil {
		return serviceError(c, err, "failed listing versions")
	}
	return utils.Success(c, fiber.StatusOK, versions)
}

// UploadVersion appends a new version to the lineage containing :id.
func (h *DocumentsHandler) UploadVersion(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	docID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	doc, err := h.Versions.Documents.Get(c.Context(), docID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}
	if !h.canAccessDocument(c, doc, currentUser) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	input, objectName, err := h.storeBlob(c, currentUser, fileHeader)
	if err != nil {
		return err
	}
	input.Description = strings.TrimSpace(c.FormValue("description"))

	version, result, err := h.Versions.CreateVersion(c.Context(), docID, input, currentUser.Actor())
	if err != nil {
		_ = h.Storage.Delete(c.Context(), objectName)
		return serviceError(c, err, "failed creating version")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "document.version_upload",
		ResourceType: "document",
		ResourceID:   &version.ID,
		Details: map[string]interface{}{
			"name":    version.Name,
			"version": version.VersionNumber,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"document": version,
		"failures": result.Failures,
	})
}

// Restore brings back the content of version :id as a new latest version.
func (h *DocumentsHandler) Restore(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	versionID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	doc, err := h.Versions.Documents.Get(c.Context(), versionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}
	if !h.canAccessDocument(c, doc, currentUser) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	restored, result, err := h.Versions.RestoreVersion(c.Context(), versionID, currentUser.Actor())
	if err != nil {
		return serviceError(c, err, "failed restoring version")
	}

	logger.InfoWithUser(currentUser.ID.String(), "document_restored", map[string]interface{}{
		"restored_from": versionID.String(),
		"document_id":   restored.ID.String(),
		"version":       restored.VersionNumber,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "document.restore",
		ResourceType: "document",
		ResourceID:   &restored.ID,
		Details: map[string]interface{}{
			"restored_from": versionID.String(),
			"version":       restored.VersionNumber,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"document": restored,
		"failures": result.Failures,
	})
}

// Collaborators lists the distinct users who contributed any version to
// the lineage containing :id.
func (h *DocumentsHandler) Collaborators(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	docID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	doc, err := h.Versions.Documents.Get(c.Context(), docID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}
	if !h.canAccessDocument(c, doc, currentUser) {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	collaborators, err := h.Versions.Collaborators(c.Context(), docID)
	if err != nil {
		return serviceError(c, err, "failed resolving collaborators")
	}
	return utils.Success(c, fiber.StatusOK, collaborators)
}

// Delete removes a single document version and its blob. Blob removal is
// best-effort; the record deletion decides the outcome.
func (h *DocumentsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	docID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	doc, err := h.Versions.Documents.Get(c.Context(), docID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading document")
	}

	if !currentUser.Actor().IsAdmin() && doc.CreatedByID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	}

	if doc.StoragePath != "" {
		if err := h.Storage.Delete(c.Context(), doc.StoragePath); err != nil {
			logger.ErrorWithUser(currentUser.ID.String(), "blob_delete_failed", err, map[string]interface{}{
				"document_id":  doc.ID.String(),
				"storage_path": doc.StoragePath,
			})
		}
	}

	if err := h.Versions.Documents.Delete(c.Context(), docID); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting document")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "document.delete",
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"name":    doc.Name,
			"version": doc.VersionNumber,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

// canAccessDocument defers to folder access when the document lives in a
// folder. Unfiled documents are open to anyone with base document access,
// plus the creator and admins.
func (h *DocumentsHandler) canAccessDocument(c *fiber.Ctx, doc *models.Document, currentUser *models.User) bool {
	actor := currentUser.Actor()
	if actor.IsAdmin() || doc.CreatedByID == actor.ID {
		return true
	}
	if doc.FolderID == nil {
		return actor.HasDocumentAccess
	}
	folder, err := h.Folders.Get(c.Context(), *doc.FolderID)
	if err != nil {
		return false
	}
	return h.Access.CanAccess(folder, actor)
}

func (h *DocumentsHandler) resolveTags(c *fiber.Ctx) ([]models.Tag, error) {
	raw := strings.TrimSpace(c.FormValue("tagIDs"))
	if raw == "" {
		return nil, nil
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := parseUUID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return h.Tags.GetMany(c.Context(), ids)
}

// storeBlob uploads the multipart file under a fresh object name and
// returns the content metadata for the record insert.
func (h *DocumentsHandler) storeBlob(c *fiber.Ctx, currentUser *models.User, fileHeader *multipart.FileHeader) (services.DocumentInput, string, error) {
	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." {
		return services.DocumentInput{}, "", utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return services.DocumentInput{}, "", utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := fmt.Sprintf("%s/%s/%s", currentUser.ID.String(), uuid.New().String(), filename)
	if err := h.Storage.Upload(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return services.DocumentInput{}, "", utils.Error(c, fiber.StatusInternalServerError, "failed uploading file")
	}

	return services.DocumentInput{
		Name:        filename,
		MimeType:    contentType,
		Size:        fileHeader.Size,
		StoragePath: objectName,
	}, objectName, nil
}
