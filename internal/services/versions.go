package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/stores"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/google/uuid"
)

// BlobCopier duplicates a stored object so a restored version gets its
// own blob.
type BlobCopier interface {
	Copy(ctx context.Context, src, dst string) error
}

// CollaboratorEvent describes a version event for notification fan-out.
type CollaboratorEvent struct {
	Action   string
	Document *models.Document
	Actor    models.Actor
}

// Notifier delivers a version event to each recipient. Delivery is
// best-effort; implementations log failures and never return them.
type Notifier interface {
	NotifyCollaborators(ctx context.Context, recipients []models.User, event CollaboratorEvent)
}

// DocumentInput is the content metadata for a new document or version.
type DocumentInput struct {
	Name        string
	MimeType    string
	Size        int64
	Description string
	StoragePath string
}

// VersionService maintains document lineages: it creates first versions,
// appends new ones, restores old ones, and keeps the single-latest
// invariant. The read-then-write version computation is serialized per
// lineage with an in-process keyed mutex; concurrent writers in other
// processes still race (last write wins, no CAS token exists on the
// records).
type VersionService struct {
	Documents *stores.Documents
	Users     *stores.Users
	Blobs     BlobCopier
	Notifier  Notifier
	locks     *keyedMutex
}

func NewVersionService(documents *stores.Documents, users *stores.Users, blobs BlobCopier, notifier Notifier) *VersionService {
	return &VersionService{
		Documents: documents,
		Users:     users,
		Blobs:     blobs,
		Notifier:  notifier,
		locks:     newKeyedMutex(),
	}
}

// CreateDocument starts a brand-new lineage at version 1. The first
// version is its own lineage root.
func (s *VersionService) CreateDocument(ctx context.Context, input DocumentInput, folderID *uuid.UUID, tags []models.Tag, actor models.Actor) (*models.Document, error) {
	doc := &models.Document{
		Name:            input.Name,
		MimeType:        input.MimeType,
		Size:            input.Size,
		Description:     input.Description,
		FolderID:        folderID,
		VersionNumber:   1,
		IsLatestVersion: true,
		StoragePath:     input.StoragePath,
		CreatedByID:     actor.ID,
		Tags:            tags,
	}
	doc.ID = uuid.New()
	rootID := doc.ID
	doc.OriginalID = &rootID

	if err := s.Documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateVersion appends a new version branched from an existing one,
// normally the current latest. The version number is always computed from
// the stored lineage, never taken from the caller. Every other version is
// then demoted; individual demotion failures are collected and reported,
// not retried, because the new version has already committed and stays
// latest regardless.
func (s *VersionService) CreateVersion(ctx context.Context, branchFromID uuid.UUID, input DocumentInput, actor models.Actor) (*models.Document, *BatchResult, error) {
	branchFrom, err := s.Documents.Get(ctx, branchFromID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}

	rootID := branchFrom.LineageRoot()
	unlock := s.locks.lock(rootID)
	defer unlock()

	versions, err := s.Documents.Lineage(ctx, rootID)
	if err != nil {
		return nil, nil, err
	}
	if len(versions) == 0 {
		return nil, nil, ErrNotFound
	}

	doc := &models.Document{
		Name:            input.Name,
		MimeType:        input.MimeType,
		Size:            input.Size,
		Description:     input.Description,
		FolderID:        branchFrom.FolderID,
		OriginalID:      &rootID,
		ParentVersionID: &branchFrom.ID,
		VersionNumber:   nextVersionNumber(versions),
		IsLatestVersion: true,
		StoragePath:     input.StoragePath,
		CreatedByID:     actor.ID,
	}
	if err := s.Documents.Create(ctx, doc); err != nil {
		return nil, nil, err
	}

	result := s.demoteOthers(ctx, versions, doc.ID)
	s.notify(ctx, rootID, CollaboratorEvent{Action: "document.version_upload", Document: doc, Actor: actor})
	return doc, result, nil
}

// RestoreVersion brings back the content of an old version as a brand-new
// version with a higher number. Nothing is deleted or renumbered; the
// restored-from record stays untouched apart from losing the latest flag,
// so history is preserved and version numbers are never reused.
func (s *VersionService) RestoreVersion(ctx context.Context, versionID uuid.UUID, actor models.Actor) (*models.Document, *BatchResult, error) {
	version, err := s.Documents.Get(ctx, versionID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}

	rootID := version.LineageRoot()
	unlock := s.locks.lock(rootID)
	defer unlock()

	versions, err := s.Documents.Lineage(ctx, rootID)
	if err != nil {
		return nil, nil, err
	}

	storagePath := ""
	if version.StoragePath != "" {
		storagePath = fmt.Sprintf("%s/%s/%s", actor.ID.String(), uuid.New().String(), version.Name)
		if err := s.Blobs.Copy(ctx, version.StoragePath, storagePath); err != nil {
			return nil, nil, err
		}
	}

	doc := &models.Document{
		Name:            version.Name,
		MimeType:        version.MimeType,
		Size:            version.Size,
		Description:     fmt.Sprintf("Restored from version %d", version.EffectiveVersion()),
		FolderID:        version.FolderID,
		OriginalID:      &rootID,
		ParentVersionID: &version.ID,
		VersionNumber:   nextVersionNumber(versions),
		IsLatestVersion: true,
		StoragePath:     storagePath,
		CreatedByID:     actor.ID,
	}
	if err := s.Documents.Create(ctx, doc); err != nil {
		return nil, nil, err
	}

	result := s.demoteOthers(ctx, versions, doc.ID)
	s.notify(ctx, rootID, CollaboratorEvent{Action: "document.restore", Document: doc, Actor: actor})
	return doc, result, nil
}

// ListVersions returns the full lineage containing the given document,
// newest first.
func (s *VersionService) ListVersions(ctx context.Context, documentID uuid.UUID) ([]models.Document, error) {
	doc, err := s.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	versions, err := s.Documents.Lineage(ctx, doc.LineageRoot())
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(versions)-1; i < j; i, j = i+1, j-1 {
		versions[i], versions[j] = versions[j], versions[i]
	}
	return versions, nil
}

// Collaborators resolves the distinct set of users who created any
// version in the lineage containing the given document, de-duplicated by
// email. Resolution is best-effort: a failed lookup drops that user.
func (s *VersionService) Collaborators(ctx context.Context, documentID uuid.UUID) ([]models.User, error) {
	doc, err := s.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	versions, err := s.Documents.Lineage(ctx, doc.LineageRoot())
	if err != nil {
		return nil, err
	}

	seenIDs := map[uuid.UUID]bool{}
	seenEmails := map[string]bool{}
	var collaborators []models.User
	for _, v := range versions {
		if seenIDs[v.CreatedByID] {
			continue
		}
		seenIDs[v.CreatedByID] = true

		user, err := s.Users.Get(ctx, v.CreatedByID)
		if err != nil {
			logger.Warn("collaborator_lookup_failed", map[string]interface{}{
				"user_id":     v.CreatedByID.String(),
				"document_id": v.ID.String(),
			})
			continue
		}
		if seenEmails[user.Email] {
			continue
		}
		seenEmails[user.Email] = true
		collaborators = append(collaborators, *user)
	}
	return collaborators, nil
}

func nextVersionNumber(versions []models.Document) int {
	max := 0
	for _, v := range versions {
		if n := v.EffectiveVersion(); n > max {
			max = n
		}
	}
	return max + 1
}

// demoteOthers flips the latest flag off on every other version of the
// lineage concurrently, collecting per-item outcomes.
func (s *VersionService) demoteOthers(ctx context.Context, versions []models.Document, keepID uuid.UUID) *BatchResult {
	result := &BatchResult{}
	var wg sync.WaitGroup
	for _, v := range versions {
		if v.ID == keepID {
			continue
		}
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if err := s.Documents.SetLatest(ctx, id, false); err != nil {
				logger.Error("version_demotion_failed", err, map[string]interface{}{
					"document_id": id.String(),
				})
				result.Fail("demotion", id, err)
				return
			}
			result.Success()
		}(v.ID)
	}
	wg.Wait()
	return result
}

func (s *VersionService) notify(ctx context.Context, rootID uuid.UUID, event CollaboratorEvent) {
	if s.Notifier == nil {
		return
	}
	recipients, err := s.Collaborators(ctx, rootID)
	if err != nil {
		logger.Warn("collaborator_resolution_failed", map[string]interface{}{
			"lineage_root_id": rootID.String(),
			"action":          event.Action,
		})
		return
	}
	s.Notifier.NotifyCollaborators(ctx, recipients, event)
}
