package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// breadcrumbSeparator joins folder display names in the breadcrumb.
const breadcrumbSeparator = " > "

// ErrUnownedPersonalFolder flags a personal folder without a resolvable owner.
// Every folder directly below the presentation root must map to exactly one
// owning user; a missing owner is a data-integrity fault.
var ErrUnownedPersonalFolder = errors.New("personal folder has no owner")

// Breadcrumb renders the ancestor path of a folder for navigation orientation.
// The tree root and the presentation root contribute nothing. The personal
// folder directly below the presentation root contributes its owner's username
// instead of its own name; the remaining folders contribute their display
// names. On a missing owner the breadcrumb degrades to the folder's own name
// and ErrUnownedPersonalFolder is returned alongside the degraded string so
// the caller can log the fault without failing the request.
func (svc *Service) Breadcrumb(ctx context.Context, folder Folder) (string, error) {
	chain, err := svc.AncestorChain(ctx, folder)
	if err != nil {
		return "", err
	}

	var integrityErr error
	parts := make([]string, 0, len(chain))
	for i, f := range chain {
		if f.IsRoot || f.IsPresentationRoot {
			continue
		}
		if i > 0 && chain[i-1].IsPresentationRoot {
			// personal folder: the owner's name stands in for the folder's own
			if f.OwnerID == nil {
				svc.logger.Error(fmt.Sprintf("personal folder %d has no owner", f.ID), ErrUnownedPersonalFolder)
				integrityErr = ErrUnownedPersonalFolder
				parts = append(parts, f.Name)
				continue
			}
			owner, err := svc.usrSvc.GetByID(ctx, *f.OwnerID)
			if err != nil {
				svc.logger.Error(fmt.Sprintf("owner %d of personal folder %d not found", *f.OwnerID, f.ID), err)
				integrityErr = ErrUnownedPersonalFolder
				parts = append(parts, f.Name)
				continue
			}
			parts = append(parts, owner.Username)
			continue
		}
		parts = append(parts, f.Name)
	}
	return strings.Join(parts, breadcrumbSeparator), integrityErr
}
