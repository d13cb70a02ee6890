package models

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleEmployee UserRole = "employee"
)

type User struct {
	BaseModel
	Email             string   `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash      string   `json:"-" gorm:"type:text;not null"`
	FirstName         string   `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName          string   `json:"lastName" gorm:"type:varchar(100);not null"`
	Role              UserRole `json:"role" gorm:"type:varchar(20);not null;default:'employee'"`
	HasDocumentAccess bool     `json:"hasDocumentAccess" gorm:"not null;default:true"`

	Documents []Document `json:"-" gorm:"foreignKey:CreatedByID"`
	Folders   []Folder   `json:"-" gorm:"foreignKey:CreatedByID"`
}

// Actor is the authenticated principal threaded explicitly through every
// service call. It is built once from the request context and trusted as-is.
type Actor struct {
	ID                uuid.UUID
	Role              UserRole
	HasDocumentAccess bool
}

func (a Actor) IsAdmin() bool {
	return a.Role == UserRoleAdmin
}

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, HasDocumentAccess: u.HasDocumentAccess}
}
