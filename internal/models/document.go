package models

import "github.com/google/uuid"

// Document is one version of a logical document. Versions form a singly
// linked lineage: ParentVersionID points at the version this one was
// created from, OriginalID at the first version ever created. Exactly one
// document per lineage carries IsLatestVersion at any time.
type Document struct {
	BaseModel
	Name            string     `json:"name" gorm:"type:varchar(255);not null"`
	MimeType        string     `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size            int64      `json:"size" gorm:"not null;default:0"`
	Description     string     `json:"description,omitempty" gorm:"type:text"`
	FolderID        *uuid.UUID `json:"folderID,omitempty" gorm:"type:uuid;index"`
	OriginalID      *uuid.UUID `json:"originalID,omitempty" gorm:"type:uuid;index"`
	ParentVersionID *uuid.UUID `json:"parentVersionID,omitempty" gorm:"type:uuid"`
	VersionNumber   int        `json:"versionNumber" gorm:"not null;default:1"`
	IsLatestVersion bool       `json:"isLatestVersion" gorm:"not null;default:true;index"`
	StoragePath     string     `json:"storagePath" gorm:"type:text;not null"`
	CreatedByID     uuid.UUID  `json:"createdByID" gorm:"type:uuid;not null;index"`

	Folder    *Folder `json:"folder,omitempty" gorm:"foreignKey:FolderID"`
	CreatedBy User    `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID;references:ID"`
	Tags      []Tag   `json:"tags,omitempty" gorm:"many2many:document_tags"`
}

// LineageRoot returns the id of the first version in this document's
// lineage. Rows created before versioning existed carry no original id
// and are their own root.
func (d *Document) LineageRoot() uuid.UUID {
	if d.OriginalID == nil || *d.OriginalID == uuid.Nil {
		return d.ID
	}
	return *d.OriginalID
}

// EffectiveVersion treats the zero value on legacy rows as version 1.
func (d *Document) EffectiveVersion() int {
	if d.VersionNumber < 1 {
		return 1
	}
	return d.VersionNumber
}
