package blob

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/exercise"
)

// MemStore is an in-memory BlobStore for tests.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ exercise.BlobStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// Put seeds a blob under a fixed key.
func (s *MemStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
}

func (s *MemStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, exercise.ErrResourceNotFound
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemStore) Save(ctx context.Context, r io.Reader) (string, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading blob")
	}
	key := uuid.New().String()
	s.Put(key, data)
	return key, nil
}
