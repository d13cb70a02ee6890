package models

import "github.com/google/uuid"

type Tag struct {
	BaseModel
	Name        string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Color       string    `json:"color,omitempty" gorm:"type:varchar(20)"`
	CreatedByID uuid.UUID `json:"createdByID" gorm:"type:uuid;not null"`

	Documents []Document `json:"-" gorm:"many2many:document_tags"`
}
