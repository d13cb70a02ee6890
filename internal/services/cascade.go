package services

import (
	"context"
	"sync"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/stores"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/google/uuid"
)

// BlobStore is the slice of blob storage the deletion orchestrator needs.
type BlobStore interface {
	Delete(ctx context.Context, objectName string) error
}

// DeleteReport is the outcome of one cascading folder deletion. The
// primary effect (the subtree is gone) is reported as counts; secondary
// failures ride along instead of failing the operation, so callers can
// tell "fully succeeded" from "succeeded with N cleanup failures".
type DeleteReport struct {
	FoldersDeleted   int           `json:"foldersDeleted"`
	DocumentsDeleted int           `json:"documentsDeleted"`
	BlobsDeleted     int           `json:"blobsDeleted"`
	DeletedFolderIDs []uuid.UUID   `json:"deletedFolderIDs"`
	Failures         []ItemFailure `json:"failures,omitempty"`
}

// DeleteService removes a folder together with its entire descendant
// subtree, every document version stored anywhere inside it, and the
// backing blobs. The orchestration runs Authorizing, Discovering,
// DeletingBlobs, DeletingDocuments, DeletingFolders in that order with no
// backward transitions: once past discovery nothing is rolled back, and a
// failed item never cancels its siblings.
type DeleteService struct {
	Documents *stores.Documents
	Folders   *stores.Folders
	Blobs     BlobStore
	locks     *keyedMutex
}

func NewDeleteService(documents *stores.Documents, folders *stores.Folders, blobs BlobStore) *DeleteService {
	return &DeleteService{Documents: documents, Folders: folders, Blobs: blobs, locks: newKeyedMutex()}
}

// DeleteFolderTree deletes the subtree rooted at folderID on behalf of
// actor. Folder records are removed children strictly before parents, the
// requested folder last, so a concurrent reader never observes a child
// whose parent is already gone.
func (s *DeleteService) DeleteFolderTree(ctx context.Context, folderID uuid.UUID, actor models.Actor) (*DeleteReport, error) {
	unlock := s.locks.lock(folderID)
	defer unlock()

	folder, err := s.Folders.Get(ctx, folderID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if !s.canDelete(folder, actor) {
		return nil, ErrForbidden
	}

	all, err := s.Folders.All(ctx)
	if err != nil {
		return nil, err
	}
	allFolderIDs := append([]uuid.UUID{folderID}, descendantsOf(all, folderID)...)

	docs, err := s.Documents.InFolders(ctx, allFolderIDs)
	if err != nil {
		return nil, err
	}

	report := &DeleteReport{}

	blobResult := &BatchResult{}
	s.deleteBlobs(ctx, docs, blobResult)
	report.BlobsDeleted = blobResult.Succeeded
	report.Failures = append(report.Failures, blobResult.Failures...)

	docResult := &BatchResult{}
	s.deleteDocuments(ctx, docs, docResult)
	report.DocumentsDeleted = docResult.Succeeded
	report.Failures = append(report.Failures, docResult.Failures...)

	// Children before parents: reverse of breadth-first discovery order,
	// which always visits a parent before any of its children.
	for i := len(allFolderIDs) - 1; i >= 0; i-- {
		id := allFolderIDs[i]
		if err := s.Folders.Delete(ctx, id); err != nil {
			report.Failures = append(report.Failures, ItemFailure{ItemID: id, Kind: "folder", Error: err.Error()})
			continue
		}
		report.FoldersDeleted++
		report.DeletedFolderIDs = append(report.DeletedFolderIDs, id)
	}

	logger.InfoWithUser(actor.ID.String(), "folder_tree_deleted", map[string]interface{}{
		"folder_id":         folderID.String(),
		"folders_deleted":   report.FoldersDeleted,
		"documents_deleted": report.DocumentsDeleted,
		"blobs_deleted":     report.BlobsDeleted,
		"failures":          len(report.Failures),
	})
	return report, nil
}

// canDelete is stricter than read access: admins, the creator, holders of
// a permission record, or anyone on a legacy-open folder (unrestricted
// with no explicit allow-list).
func (s *DeleteService) canDelete(folder *models.Folder, actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if folder.CreatedByID == actor.ID {
		return true
	}
	if folder.HasPermissionFor(actor.ID) {
		return true
	}
	return !folder.IsRestricted && len(folder.AllowedUserIDs) == 0
}

// deleteBlobs requests deletion of each backing object independently.
// Blob cleanup is best-effort; the metadata deletion that follows is the
// source of truth for "the document is gone".
func (s *DeleteService) deleteBlobs(ctx context.Context, docs []models.Document, result *BatchResult) {
	var wg sync.WaitGroup
	for _, doc := range docs {
		if doc.StoragePath == "" {
			continue
		}
		wg.Add(1)
		go func(doc models.Document) {
			defer wg.Done()
			if err := s.Blobs.Delete(ctx, doc.StoragePath); err != nil {
				result.Fail("blob", doc.ID, err)
				return
			}
			result.Success()
		}(doc)
	}
	wg.Wait()
}

func (s *DeleteService) deleteDocuments(ctx context.Context, docs []models.Document, result *BatchResult) {
	var wg sync.WaitGroup
	for _, doc := range docs {
		wg.Add(1)
		go func(doc models.Document) {
			defer wg.Done()
			if err := s.Documents.Delete(ctx, doc.ID); err != nil {
				result.Fail("document", doc.ID, err)
				return
			}
			result.Success()
		}(doc)
	}
	wg.Wait()
}
