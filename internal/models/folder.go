package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Folder is a node in the permission-scoped tree. Folders are stored flat;
// the tree exists only through ParentID pointers. An unrestricted folder is
// readable by anyone with base document access, including legacy folders
// created before restriction existed. A restricted folder with an empty
// allow-list and no permission rows is visible to nobody but its creator
// and admins.
type Folder struct {
	BaseModel
	Name           string      `json:"name" gorm:"type:varchar(255);not null"`
	ParentID       *uuid.UUID  `json:"parentID,omitempty" gorm:"type:uuid;index"`
	IsRestricted   bool        `json:"isRestricted" gorm:"not null;default:false"`
	AllowedUserIDs []uuid.UUID `json:"allowedUserIDs,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedByID    uuid.UUID   `json:"createdByID" gorm:"type:uuid;not null;index"`
	UpdatedByID    *uuid.UUID  `json:"updatedByID,omitempty" gorm:"type:uuid"`

	Parent      *Folder            `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children    []Folder           `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	CreatedBy   User               `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID;references:ID"`
	Permissions []FolderPermission `json:"permissions,omitempty" gorm:"foreignKey:FolderID"`
	Documents   []Document         `json:"-" gorm:"foreignKey:FolderID"`
}

func (f *Folder) AllowsUser(userID uuid.UUID) bool {
	for _, id := range f.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (f *Folder) HasPermissionFor(userID uuid.UUID) bool {
	for _, p := range f.Permissions {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// FolderPermission is the secondary, historically populated access source.
// Rows here are honored alongside the allow-list.
type FolderPermission struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FolderID    uuid.UUID `json:"folderID" gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`
	GrantedByID uuid.UUID `json:"grantedByID" gorm:"type:uuid;not null"`
	GrantedAt   time.Time `json:"grantedAt" gorm:"not null"`
}

func (p *FolderPermission) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.GrantedAt.IsZero() {
		p.GrantedAt = time.Now().UTC()
	}
	return nil
}

func (FolderPermission) TableName() string {
	return "folder_permissions"
}
