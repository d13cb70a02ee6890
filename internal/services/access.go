package services

import (
	"context"
	"sort"
	"strings"

	"github.com/docuvault/backend/internal/models"
	"github.com/docuvault/backend/internal/stores"
	"github.com/google/uuid"
)

// AccessService decides whether an actor may see a folder. Each check is
// evaluated against that folder alone; ancestor restriction is enforced by
// the propagator copying settings down at write time, not by walking
// parents here. Reads stay O(1) at the cost of depending on the propagator
// having run.
type AccessService struct {
	Folders *stores.Folders
}

func NewAccessService(folders *stores.Folders) *AccessService {
	return &AccessService{Folders: folders}
}

// CanAccess grants when the actor is an admin, created the folder, the
// folder is unrestricted (open to anyone with base document access), the
// actor is on the allow-list, or the actor holds a permission record.
func (a *AccessService) CanAccess(folder *models.Folder, actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if folder.CreatedByID == actor.ID {
		return true
	}
	if !folder.IsRestricted {
		return actor.HasDocumentAccess
	}
	if folder.AllowsUser(actor.ID) {
		return true
	}
	return folder.HasPermissionFor(actor.ID)
}

// AccessibleFolders filters the full collection through CanAccess, each
// folder judged independently.
func (a *AccessService) AccessibleFolders(ctx context.Context, actor models.Actor) ([]models.Folder, error) {
	all, err := a.Folders.All(ctx)
	if err != nil {
		return nil, err
	}

	accessible := make([]models.Folder, 0, len(all))
	for _, folder := range all {
		if a.CanAccess(&folder, actor) {
			accessible = append(accessible, folder)
		}
	}
	return accessible, nil
}

// FolderNode is one node of the navigable tree assembled for a user.
type FolderNode struct {
	models.Folder
	Children []*FolderNode `json:"children"`
}

// FolderTree groups the actor's accessible folders into parent/children
// form. A folder whose parent is invisible to the actor surfaces as a
// root. Siblings sort by name, case-insensitively.
func (a *AccessService) FolderTree(ctx context.Context, actor models.Actor) ([]*FolderNode, error) {
	accessible, err := a.AccessibleFolders(ctx, actor)
	if err != nil {
		return nil, err
	}

	nodes := make(map[uuid.UUID]*FolderNode, len(accessible))
	for i := range accessible {
		nodes[accessible[i].ID] = &FolderNode{Folder: accessible[i], Children: []*FolderNode{}}
	}

	var roots []*FolderNode
	for _, node := range nodes {
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortSiblings(roots)
	for _, node := range nodes {
		sortSiblings(node.Children)
	}
	return roots, nil
}

func sortSiblings(nodes []*FolderNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
}
