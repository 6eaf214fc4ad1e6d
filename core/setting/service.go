package setting

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Well-known configuration keys.
const (
	KeyAceEditorURL = "urls.ace-editor"
	KeyMathJaxURL   = "urls.mathjax"

	// KeyRegistrationEmailPattern enables self-registration when present;
	// its value is the regexp submitted emails must match.
	KeyRegistrationEmailPattern = "registration.email-pattern"
)

var ErrNotFound = errors.New("setting not found")

type (
	Repository interface {
		GetValue(ctx context.Context, key string) (string, error)
		SetValue(ctx context.Context, key, value string) error
		AllValues(ctx context.Context) (map[string]string, error)
	}

	// Service reads the key-value configuration store through a process-wide
	// cache. Writers must call ClearCache afterwards; invalidation is only
	// guaranteed to be visible to subsequent reads.
	Service struct {
		repo Repository

		mu     sync.RWMutex
		cache  map[string]string
		loaded bool
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetSingleValue resolves at most one value for key. Absence is not an error:
// it is reported through the ok result.
func (svc *Service) GetSingleValue(ctx context.Context, key string) (string, bool, error) {
	svc.mu.RLock()
	if svc.loaded {
		val, ok := svc.cache[key]
		svc.mu.RUnlock()
		return val, ok, nil
	}
	svc.mu.RUnlock()

	if err := svc.load(ctx); err != nil {
		return "", false, err
	}

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	val, ok := svc.cache[key]
	return val, ok, nil
}

// Set stores a single configuration value. Callers are responsible for
// invalidating the read cache via ClearCache once done writing.
func (svc *Service) Set(ctx context.Context, key, value string) error {
	return svc.repo.SetValue(ctx, key, value)
}

// ClearCache drops the read cache; the next read reloads the store.
func (svc *Service) ClearCache() {
	svc.mu.Lock()
	svc.cache = nil
	svc.loaded = false
	svc.mu.Unlock()
}

func (svc *Service) load(ctx context.Context) error {
	vals, err := svc.repo.AllValues(ctx)
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}
	svc.mu.Lock()
	svc.cache = vals
	svc.loaded = true
	svc.mu.Unlock()
	return nil
}
