package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/storage"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEntry struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
	RequestID    string
}

// AuditService writes audit rows through a buffered queue and doubles as
// the notification dispatcher: version events fan out Activity rows to
// lineage collaborators.
type AuditService struct {
	DB      *gorm.DB
	Storage storage.Store
	queue   chan models.AuditLog
}

func NewAuditService(db *gorm.DB, storageClient storage.Store) *AuditService {
	s := &AuditService{
		DB:      db,
		Storage: storageClient,
		queue:   make(chan models.AuditLog, 1000),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		CreatedAt:    time.Now().UTC(),
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
		}
	}
}

// NotifyCollaborators implements Notifier. Each recipient gets an
// Activity row; the acting user is skipped. Failures are logged per
// recipient and never escalated.
func (s *AuditService) NotifyCollaborators(ctx context.Context, recipients []models.User, event CollaboratorEvent) {
	if event.Document == nil {
		return
	}

	actorName := s.actorName(event.Actor.ID)
	docID := event.Document.ID

	var message string
	switch event.Action {
	case "document.version_upload":
		message = fmt.Sprintf("%s uploaded version %d of \"%s\"", actorName, event.Document.VersionNumber, event.Document.Name)
	case "document.restore":
		message = fmt.Sprintf("%s restored \"%s\" (%s)", actorName, event.Document.Name, strings.ToLower(event.Document.Description))
	default:
		message = fmt.Sprintf("%s updated \"%s\"", actorName, event.Document.Name)
	}

	for _, recipient := range recipients {
		if recipient.ID == event.Actor.ID {
			continue
		}
		activity := models.Activity{
			UserID:       recipient.ID,
			ActorID:      event.Actor.ID,
			Action:       event.Action,
			ResourceType: "document",
			ResourceID:   &docID,
			ResourceName: event.Document.Name,
			Message:      message,
		}
		if err := s.DB.WithContext(ctx).Create(&activity).Error; err != nil {
			logger.Error("activity_insert_failed", err, map[string]interface{}{
				"action":  event.Action,
				"user_id": recipient.ID.String(),
			})
		}
	}
}

func (s *AuditService) actorName(userID uuid.UUID) string {
	var user models.User
	if err := s.DB.Select("first_name", "last_name").First(&user, "id = ?", userID).Error; err != nil {
		return "Someone"
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// StartExporter runs a background goroutine that periodically exports new
// audit rows to object storage as NDJSON files.
func (s *AuditService) StartExporter(interval time.Duration) {
	if s.Storage == nil {
		logger.Info("audit_exporter_disabled", map[string]interface{}{
			"reason": "no storage client configured",
		})
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			s.export()
		}
	}()

	logger.Info("audit_exporter_started", map[string]interface{}{
		"interval": interval.String(),
	})
}

func (s *AuditService) export() {
	var cursor models.AuditExportCursor
	err := s.DB.First(&cursor).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			cursor = models.AuditExportCursor{
				LastExportAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			}
			if createErr := s.DB.Create(&cursor).Error; createErr != nil {
				logger.Error("audit_export_cursor_create_failed", createErr, nil)
				return
			}
		} else {
			logger.Error("audit_export_cursor_load_failed", err, nil)
			return
		}
	}

	var logs []models.AuditLog
	if err := s.DB.Where("created_at > ?", cursor.LastExportAt).
		Order("created_at ASC").
		Limit(10000).
		Find(&logs).Error; err != nil {
		logger.Error("audit_export_query_failed", err, nil)
		return
	}

	if len(logs) == 0 {
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range logs {
		if err := enc.Encode(row); err != nil {
			logger.Error("audit_export_encode_failed", err, map[string]interface{}{
				"log_id": row.ID.String(),
			})
			continue
		}
	}

	now := time.Now().UTC()
	objectName := fmt.Sprintf("audit-logs/%s/%s.ndjson",
		now.Format("2006/01/02"),
		now.Format("15-04-05"),
	)

	if err := s.Storage.Upload(
		context.Background(),
		objectName,
		&buf,
		int64(buf.Len()),
		"application/x-ndjson",
	); err != nil {
		logger.Error("audit_export_upload_failed", err, map[string]interface{}{
			"object_name": objectName,
			"count":       len(logs),
		})
		return
	}

	lastCreatedAt := logs[len(logs)-1].CreatedAt
	s.DB.Model(&cursor).Updates(map[string]interface{}{
		"last_export_at": lastCreatedAt,
		"exported_count": gorm.Expr("exported_count + ?", len(logs)),
	})

	logger.Info("audit_export_success", map[string]interface{}{
		"object_name": objectName,
		"count":       len(logs),
	})
}
