package content

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("folder not found")
	ErrPermissionDenied = errors.New("permission denied")
)

type (
	Repository interface {
		GetFolderByID(ctx context.Context, id int) (Folder, error)
		// GetFolderRights returns all stored right entries on a folder.
		GetFolderRights(ctx context.Context, folderID int) ([]UserRight, error)
		// SetFolderRights replaces the given users' right entries on a folder atomically.
		SetFolderRights(ctx context.Context, folderID int, rights []UserRight) error
	}

	Service struct {
		repo   Repository
		usrSvc user.Service
		logger core.Logger
	}
)

func NewService(repo Repository, usrSvc user.Service, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		usrSvc: usrSvc,
		logger: logger,
	}
}

func (svc *Service) GetFolder(ctx context.Context, id int) (Folder, error) {
	return svc.repo.GetFolderByID(ctx, id)
}

// AncestorChain returns the folder chain from the tree root down to folder.
func (svc *Service) AncestorChain(ctx context.Context, folder Folder) ([]Folder, error) {
	chain := []Folder{folder}
	for folder.ParentID != nil {
		parent, err := svc.repo.GetFolderByID(ctx, *folder.ParentID)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving parent of folder %d", folder.ID)
		}
		chain = append([]Folder{parent}, chain...)
		folder = parent
	}
	return chain, nil
}

// MaximumRightForUser computes the effective right usr holds on folder:
// the union of the user's stored entries along the ancestor chain.
// Admins and the folder's owner always hold Manage.
func (svc *Service) MaximumRightForUser(ctx context.Context, usr user.User, folder Folder) (AccessRight, error) {
	if usr.IsAdmin() {
		return Manage.Normalize(), nil
	}

	chain, err := svc.AncestorChain(ctx, folder)
	if err != nil {
		return None, err
	}

	var right AccessRight
	for _, f := range chain {
		if f.OwnerID != nil && *f.OwnerID == usr.ID {
			return Manage.Normalize(), nil
		}
		entries, err := svc.repo.GetFolderRights(ctx, f.ID)
		if err != nil {
			return None, errors.Wrapf(err, "loading rights of folder %d", f.ID)
		}
		for _, e := range entries {
			if e.UserID == usr.ID {
				right |= e.Right
			}
		}
	}
	return right.Normalize(), nil
}

func (svc *Service) CanRead(ctx context.Context, usr user.User, folder Folder) (bool, error) {
	r, err := svc.MaximumRightForUser(ctx, usr, folder)
	return r.CanRead(), err
}

func (svc *Service) CanGrade(ctx context.Context, usr user.User, folder Folder) (bool, error) {
	r, err := svc.MaximumRightForUser(ctx, usr, folder)
	return r.CanGrade(), err
}

func (svc *Service) CanManage(ctx context.Context, usr user.User, folder Folder) (bool, error) {
	r, err := svc.MaximumRightForUser(ctx, usr, folder)
	return r.CanManage(), err
}

// RightsSnapshot loads the rights dialog data for a folder: for every user
// holding an entry on the folder or inheriting one from its ancestors, the
// own right on the folder and the inherited right from above.
func (svc *Service) RightsSnapshot(ctx context.Context, folder Folder) ([]UserRightsData, error) {
	chain, err := svc.AncestorChain(ctx, folder)
	if err != nil {
		return nil, err
	}

	own := make(map[int]AccessRight)
	inherited := make(map[int]AccessRight)
	for _, f := range chain {
		entries, err := svc.repo.GetFolderRights(ctx, f.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "loading rights of folder %d", f.ID)
		}
		for _, e := range entries {
			if f.ID == folder.ID {
				own[e.UserID] |= e.Right
			} else {
				inherited[e.UserID] |= e.Right
			}
		}
	}

	seen := make(map[int]bool, len(own)+len(inherited))
	data := make([]UserRightsData, 0, len(own)+len(inherited))
	appendUser := func(id int) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		usr, err := svc.usrSvc.GetByID(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "resolving user %d", id)
		}
		data = append(data, UserRightsData{
			UserID:         id,
			Username:       usr.Username,
			OwnRight:       Flags(own[id]),
			InheritedRight: Flags(inherited[id]),
		})
		return nil
	}
	for id := range own {
		if err := appendUser(id); err != nil {
			return nil, err
		}
	}
	for id := range inherited {
		if err := appendUser(id); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// ApplyRightsEdits applies buffered rights edits to a folder in one call.
// The actor's Manage right is re-checked here, independent of any earlier
// read check performed when the dialog was loaded.
func (svc *Service) ApplyRightsEdits(ctx context.Context, actor user.User, folder Folder, edits []RightsEdit) error {
	ok, err := svc.CanManage(ctx, actor, folder)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}

	rights := make([]UserRight, 0, len(edits))
	for _, e := range edits {
		rights = append(rights, UserRight{
			FolderID: folder.ID,
			UserID:   e.UserID,
			Right:    e.Right.Right(),
		})
	}
	if err := svc.repo.SetFolderRights(ctx, folder.ID, rights); err != nil {
		return errors.Wrapf(err, "saving rights of folder %d", folder.ID)
	}
	svc.logger.Info(fmt.Sprintf("rights of folder %d updated", folder.ID), actor)
	return nil
}
