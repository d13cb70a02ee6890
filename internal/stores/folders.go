package stores

import (
	"context"
	"time"

	"github.com/docuvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Folders persists the flat folder collection. There is no native tree
// index; subtree discovery happens in the services over a full scan.
type Folders struct {
	DB *gorm.DB
}

func NewFolders(db *gorm.DB) *Folders {
	return &Folders{DB: db}
}

func (s *Folders) Get(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	if err := s.DB.WithContext(ctx).Preload("Permissions").First(&folder, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

func (s *Folders) Create(ctx context.Context, folder *models.Folder) error {
	return s.DB.WithContext(ctx).Create(folder).Error
}

func (s *Folders) All(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	if err := s.DB.WithContext(ctx).Preload("Permissions").Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *Folders) Children(ctx context.Context, parentID uuid.UUID) ([]models.Folder, error) {
	var folders []models.Folder
	err := s.DB.WithContext(ctx).Preload("Permissions").
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Find(&folders).Error
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// SetAccessControl overwrites a folder's restriction settings. Select
// forces zero values through so clearing the allow-list or un-restricting
// actually persists.
func (s *Folders) SetAccessControl(ctx context.Context, id uuid.UUID, restricted bool, allowed []uuid.UUID, updatedBy uuid.UUID) error {
	now := time.Now().UTC()
	return s.DB.WithContext(ctx).Model(&models.Folder{}).
		Where("id = ?", id).
		Select("is_restricted", "allowed_user_ids", "updated_by_id", "updated_at").
		Updates(models.Folder{
			IsRestricted:   restricted,
			AllowedUserIDs: allowed,
			UpdatedByID:    &updatedBy,
			BaseModel:      models.BaseModel{UpdatedAt: now},
		}).Error
}

func (s *Folders) GrantPermission(ctx context.Context, perm *models.FolderPermission) error {
	return s.DB.WithContext(ctx).Create(perm).Error
}

func (s *Folders) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.DB.WithContext(ctx).Where("folder_id = ?", id).Delete(&models.FolderPermission{}).Error; err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Delete(&models.Folder{}, "id = ?", id).Error
}
