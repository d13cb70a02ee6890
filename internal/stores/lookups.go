package stores

import (
	"context"

	"github.com/docuvault/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Users and Tags are read-only lookups used to enrich responses and
// resolve collaborators. A missing record is the caller's problem to
// degrade gracefully, never an abort.

type Users struct {
	DB *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{DB: db}
}

func (s *Users) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type Tags struct {
	DB *gorm.DB
}

func NewTags(db *gorm.DB) *Tags {
	return &Tags{DB: db}
}

func (s *Tags) Get(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var tag models.Tag
	if err := s.DB.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetMany resolves the tags that exist and silently drops ids that do not.
func (s *Tags) GetMany(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []models.Tag
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
