package setting

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// countingRepo counts store loads to observe the cache.
type countingRepo struct {
	mu     sync.Mutex
	values map[string]string
	loads  int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{values: make(map[string]string)}
}

func (repo *countingRepo) GetValue(ctx context.Context, key string) (string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if val, ok := repo.values[key]; ok {
		return val, nil
	}
	return "", ErrNotFound
}

func (repo *countingRepo) SetValue(ctx context.Context, key, value string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.values[key] = value
	return nil
}

func (repo *countingRepo) AllValues(ctx context.Context) (map[string]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.loads++
	vals := make(map[string]string, len(repo.values))
	for k, v := range repo.values {
		vals[k] = v
	}
	return vals, nil
}

func (repo *countingRepo) loadCount() int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.loads
}

func TestServiceCache(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	_ = repo.SetValue(ctx, KeyMathJaxURL, "https://cdn.test/mathjax")
	svc := NewService(repo)

	val, ok, err := svc.GetSingleValue(ctx, KeyMathJaxURL)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.test/mathjax", val)
	assert.Equal(t, 1, repo.loadCount())

	// further reads are served from the cache
	_, ok, err = svc.GetSingleValue(ctx, KeyAceEditorURL)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, repo.loadCount())

	// a write alone is invisible to readers
	assert.NoError(t, svc.Set(ctx, KeyAceEditorURL, "https://cdn.test/ace"))
	_, ok, _ = svc.GetSingleValue(ctx, KeyAceEditorURL)
	assert.False(t, ok)

	// invalidation makes the next read reload the store
	svc.ClearCache()
	val, ok, err = svc.GetSingleValue(ctx, KeyAceEditorURL)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.test/ace", val)
	assert.Equal(t, 2, repo.loadCount())
}

func TestClientURLs(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	_ = repo.SetValue(ctx, KeyAceEditorURL, "https://cdn.test/ace/1.4.12")
	svc := NewService(repo)

	urls, err := svc.ClientURLs(ctx)
	assert.NoError(t, err)
	assert.Len(t, urls, 2)

	byKey := make(map[string]ClientURL, len(urls))
	for _, cu := range urls {
		byKey[cu.Key] = cu
	}

	ace := byKey[KeyAceEditorURL]
	assert.True(t, ace.Configured)
	assert.Equal(t, "https://cdn.test/ace/1.4.12", ace.URL)
	assert.Empty(t, ace.Hint)

	mathjax := byKey[KeyMathJaxURL]
	assert.False(t, mathjax.Configured)
	assert.Empty(t, mathjax.URL)
	assert.True(t, strings.Contains(mathjax.Hint, KeyMathJaxURL))
}
