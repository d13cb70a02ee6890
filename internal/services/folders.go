package services

import (
	"context"
	"sync"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/stores"
	"github.com/docuvault/backend/pkg/logger"
	"github.com/google/uuid"
)

// AccessUpdate is the restriction state applied to a folder and, when
// restricting, blindly copied onto every descendant.
type AccessUpdate struct {
	IsRestricted   bool
	AllowedUserIDs []uuid.UUID
}

// FolderService owns folder access-control updates and their downward
// propagation.
type FolderService struct {
	Folders *stores.Folders
	Access  *AccessService
	locks   *keyedMutex
}

func NewFolderService(folders *stores.Folders, access *AccessService) *FolderService {
	return &FolderService{Folders: folders, Access: access, locks: newKeyedMutex()}
}

// UpdateAccess persists the new restriction settings on the folder, then,
// if the folder is now restricted, applies the identical settings to every
// descendant. The cascade is a blind overwrite: descendants do not keep or
// merge their previous allow-lists, so "lock this folder and everything
// under it" behaves as one operation from the caller's side even though
// storage sees one write per folder. Un-restricting never cascades;
// children keep whatever state they already have.
func (s *FolderService) UpdateAccess(ctx context.Context, folderID uuid.UUID, update AccessUpdate, actor models.Actor) (*models.Folder, *BatchResult, error) {
	unlock := s.locks.lock(folderID)
	defer unlock()

	folder, err := s.Folders.Get(ctx, folderID)
	if err != nil {
		return nil, nil, notFoundOr(err)
	}
	if !s.Access.CanAccess(folder, actor) {
		return nil, nil, ErrForbidden
	}

	if err := s.Folders.SetAccessControl(ctx, folderID, update.IsRestricted, update.AllowedUserIDs, actor.ID); err != nil {
		return nil, nil, err
	}

	result := &BatchResult{}
	if update.IsRestricted {
		s.propagate(ctx, folderID, update, actor, result)
	}

	updated, err := s.Folders.Get(ctx, folderID)
	if err != nil {
		return nil, nil, err
	}
	return updated, result, nil
}

// propagate applies the settings to every descendant folder. Each write is
// independent and best-effort; a failed descendant is recorded and the
// rest proceed, since the primary write on the requested folder has
// already committed.
func (s *FolderService) propagate(ctx context.Context, folderID uuid.UUID, update AccessUpdate, actor models.Actor, result *BatchResult) {
	all, err := s.Folders.All(ctx)
	if err != nil {
		logger.ErrorWithUser(actor.ID.String(), "folder_propagation_scan_failed", err, map[string]interface{}{
			"folder_id": folderID.String(),
		})
		result.Fail("propagation", folderID, err)
		return
	}

	descendants := descendantsOf(all, folderID)

	var wg sync.WaitGroup
	for _, id := range descendants {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if err := s.Folders.SetAccessControl(ctx, id, update.IsRestricted, update.AllowedUserIDs, actor.ID); err != nil {
				result.Fail("folder", id, err)
				return
			}
			result.Success()
		}(id)
	}
	wg.Wait()
}

// descendantsOf walks an adjacency map built from the flat collection and
// returns every transitive child of rootID in breadth-first order, root
// excluded.
func descendantsOf(all []models.Folder, rootID uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID, len(all))
	for _, folder := range all {
		if folder.ParentID != nil {
			children[*folder.ParentID] = append(children[*folder.ParentID], folder.ID)
		}
	}

	var descendants []uuid.UUID
	queue := append([]uuid.UUID{}, children[rootID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		descendants = append(descendants, id)
		queue = append(queue, children[id]...)
	}
	return descendants
}
