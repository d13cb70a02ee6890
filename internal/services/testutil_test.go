package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/stores"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var loggerOnce sync.Once

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	loggerOnce.Do(logger.Init)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Folder{},
		&models.FolderPermission{},
		&models.Document{},
		&models.Activity{},
		&models.AuditLog{},
		&models.AuditExportCursor{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Email:             email,
		PasswordHash:      "hash",
		FirstName:         "Test",
		LastName:          "User",
		Role:              role,
		HasDocumentAccess: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", email, err)
	}
	return user
}

func createFolder(t *testing.T, db *gorm.DB, name string, parentID *uuid.UUID, createdBy uuid.UUID) *models.Folder {
	t.Helper()

	folder := &models.Folder{
		Name:        name,
		ParentID:    parentID,
		CreatedByID: createdBy,
	}
	if err := db.Create(folder).Error; err != nil {
		t.Fatalf("failed creating folder %s: %v", name, err)
	}
	return folder
}

func createDocument(t *testing.T, db *gorm.DB, name string, folderID *uuid.UUID, createdBy uuid.UUID) *models.Document {
	t.Helper()

	doc := &models.Document{
		Name:            name,
		MimeType:        "text/plain",
		Size:            42,
		FolderID:        folderID,
		VersionNumber:   1,
		IsLatestVersion: true,
		StoragePath:     "blobs/" + name,
		CreatedByID:     createdBy,
	}
	doc.ID = uuid.New()
	rootID := doc.ID
	doc.OriginalID = &rootID

	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("failed creating document %s: %v", name, err)
	}
	return doc
}

// fakeBlobs implements BlobCopier and BlobStore with optional failure
// injection keyed by object name.
type fakeBlobs struct {
	mu      sync.Mutex
	copies  map[string]string
	deleted []string
	failOn  map[string]bool
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{
		copies: map[string]string{},
		failOn: map[string]bool{},
	}
}

func (f *fakeBlobs) Copy(_ context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[src] {
		return fmt.Errorf("copy failed for %s", src)
	}
	f.copies[dst] = src
	return nil
}

func (f *fakeBlobs) Delete(_ context.Context, objectName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[objectName] {
		return fmt.Errorf("delete failed for %s", objectName)
	}
	f.deleted = append(f.deleted, objectName)
	return nil
}

func (f *fakeBlobs) deletedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

func newVersionServiceForTest(db *gorm.DB, blobs *fakeBlobs) *VersionService {
	return NewVersionService(stores.NewDocuments(db), stores.NewUsers(db), blobs, nil)
}
