// Package inmemdb provides in-memory implementations of the core
// repositories, used in tests and local hacking sessions.
package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/darasa/core/user"
)

type UserRepository struct {
	mu    sync.RWMutex
	pk    int
	users map[int]user.User
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int]user.User)}
}

func (repo *UserRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	excluded := func(usr user.User) bool {
		for _, eu := range excludedUsers {
			if usr.ID == eu.ID {
				return true
			}
		}
		return false
	}
	for _, usr := range repo.users {
		if excluded(usr) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.pk++
	usr.ID = repo.pk
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *UserRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	users := make([]user.User, 0, len(repo.users))
	for _, usr := range repo.users {
		users = append(users, usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (repo *UserRepository) CountUsers(ctx context.Context) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return len(repo.users), nil
}

func (repo *UserRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if usr, ok := repo.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *UserRepository) getUserBy(match func(user.User) bool) (user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, usr := range repo.users {
		if match(usr) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *UserRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getUserBy(func(usr user.User) bool { return usr.Username == username })
}

func (repo *UserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUserBy(func(usr user.User) bool { return usr.Email == email })
}

func (repo *UserRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getUserBy(func(usr user.User) bool {
		return usr.Username == username || usr.Email == username
	})
}

func (repo *UserRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	all, _ := repo.QueryAllUsers(ctx)
	if filter.IsEmpty() {
		return all, nil
	}

	match := func(usr user.User) bool {
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(usr.Name), s) &&
				!strings.Contains(strings.ToLower(usr.Username), s) &&
				!strings.Contains(strings.ToLower(usr.Email), s) {
				return false
			}
		}
		if filter.Roles != nil {
			found := false
			for _, role := range filter.Roles {
				if usr.RoleStartsWith(role) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			return false
		}
		if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
			return false
		}
		if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
			return false
		}
		return true
	}

	users := make([]user.User, 0, len(all))
	for _, usr := range all {
		if match(usr) {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *UserRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	orig, ok := repo.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	// only save set fields
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	if !usr.LastLogin.IsZero() {
		orig.LastLogin = usr.LastLogin
	}
	if !usr.UpdatedAt.IsZero() {
		orig.UpdatedAt = usr.UpdatedAt
	} else {
		orig.UpdatedAt = time.Now().UTC()
	}

	repo.users[orig.ID] = orig
	return orig, nil
}

func (repo *UserRepository) ClearPasswordHashes(ctx context.Context, ids ...int) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, id := range ids {
		if usr, ok := repo.users[id]; ok {
			usr.PasswordHash = nil
			repo.users[id] = usr
		}
	}
	return nil
}

func (repo *UserRepository) DeleteUsersByID(ctx context.Context, ids ...int) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, id := range ids {
		delete(repo.users, id)
	}
	return nil
}
