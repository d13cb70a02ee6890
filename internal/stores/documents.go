package stores

import (
	"context"

	"github.com/docuvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Documents is the version chain store: plain persistence by id and by
// lineage root, no versioning logic of its own.
type Documents struct {
	DB *gorm.DB
}

func NewDocuments(db *gorm.DB) *Documents {
	return &Documents{DB: db}
}

func (s *Documents) Get(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := s.DB.WithContext(ctx).Preload("Tags").First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	normalize(&doc)
	return &doc, nil
}

func (s *Documents) Create(ctx context.Context, doc *models.Document) error {
	return s.DB.WithContext(ctx).Create(doc).Error
}

// Lineage returns every version sharing the given lineage root, oldest
// first. The root row itself is matched by id as well, defensively, since
// legacy records may omit original_id.
func (s *Documents) Lineage(ctx context.Context, rootID uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	err := s.DB.WithContext(ctx).
		Where("original_id = ? OR id = ?", rootID, rootID).
		Order("version_number ASC, created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	for i := range docs {
		normalize(&docs[i])
	}
	return docs, nil
}

// InFolders returns every document version stored under any of the given
// folders, not just the latest ones.
func (s *Documents) InFolders(ctx context.Context, folderIDs []uuid.UUID) ([]models.Document, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	var docs []models.Document
	err := s.DB.WithContext(ctx).Where("folder_id IN ?", folderIDs).Find(&docs).Error
	if err != nil {
		return nil, err
	}
	for i := range docs {
		normalize(&docs[i])
	}
	return docs, nil
}

// LatestInFolder returns the current versions directly inside one folder.
func (s *Documents) LatestInFolder(ctx context.Context, folderID uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	err := s.DB.WithContext(ctx).Preload("Tags").
		Where("folder_id = ? AND is_latest_version = ?", folderID, true).
		Order("name ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	for i := range docs {
		normalize(&docs[i])
	}
	return docs, nil
}

func (s *Documents) SetLatest(ctx context.Context, id uuid.UUID, latest bool) error {
	return s.DB.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Update("is_latest_version", latest).Error
}

func (s *Documents) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Delete(&models.Document{}, "id = ?", id).Error
}

// normalize migrates legacy records at read time: rows written before
// versioning existed carry no original_id and a zero version_number. Every
// read path goes through here so the rest of the code never checks for
// missing fields.
func normalize(doc *models.Document) {
	if doc.OriginalID == nil || *doc.OriginalID == uuid.Nil {
		id := doc.ID
		doc.OriginalID = &id
	}
	if doc.VersionNumber < 1 {
		doc.VersionNumber = 1
	}
}
