package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/content"
)

type ContentRepository struct {
	mu      sync.RWMutex
	folders map[int]content.Folder
	rights  map[int]map[int]content.AccessRight // folder id -> user id -> right
}

var _ content.Repository = (*ContentRepository)(nil)

func NewContentRepository() *ContentRepository {
	return &ContentRepository{
		folders: make(map[int]content.Folder),
		rights:  make(map[int]map[int]content.AccessRight),
	}
}

// AddFolder seeds a folder; the caller assigns IDs.
func (repo *ContentRepository) AddFolder(f content.Folder) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.folders[f.ID] = f
}

func (repo *ContentRepository) GetFolderByID(ctx context.Context, id int) (content.Folder, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if f, ok := repo.folders[id]; ok {
		return f, nil
	}
	return content.Folder{}, content.ErrNotFound
}

func (repo *ContentRepository) GetFolderRights(ctx context.Context, folderID int) ([]content.UserRight, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	entries := repo.rights[folderID]
	rights := make([]content.UserRight, 0, len(entries))
	for uid, r := range entries {
		rights = append(rights, content.UserRight{FolderID: folderID, UserID: uid, Right: r})
	}
	return rights, nil
}

func (repo *ContentRepository) SetFolderRights(ctx context.Context, folderID int, rights []content.UserRight) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	entries := repo.rights[folderID]
	if entries == nil {
		entries = make(map[int]content.AccessRight)
		repo.rights[folderID] = entries
	}
	for _, r := range rights {
		if r.Right == content.None {
			delete(entries, r.UserID)
			continue
		}
		entries[r.UserID] = r.Right
	}
	return nil
}
