package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/setting"
)

type SettingRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ setting.Repository = (*SettingRepository)(nil)

func NewSettingRepository() *SettingRepository {
	return &SettingRepository{values: make(map[string]string)}
}

func (repo *SettingRepository) GetValue(ctx context.Context, key string) (string, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if val, ok := repo.values[key]; ok {
		return val, nil
	}
	return "", setting.ErrNotFound
}

func (repo *SettingRepository) SetValue(ctx context.Context, key, value string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.values[key] = value
	return nil
}

func (repo *SettingRepository) AllValues(ctx context.Context) (map[string]string, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	vals := make(map[string]string, len(repo.values))
	for k, v := range repo.values {
		vals[k] = v
	}
	return vals, nil
}
