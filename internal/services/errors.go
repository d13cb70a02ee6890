package services

import (
	"errors"

	"gorm.io/gorm"
)

// NotFound and Forbidden abort an operation before any mutation happens.
// Partial failures never surface as errors; they travel inside a
// BatchResult or DeleteReport attached to the success response.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
