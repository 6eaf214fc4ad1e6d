// Package blob stores resource binaries on the local filesystem, keyed by
// opaque generated names so user-supplied filenames never touch the disk.
package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/exercise"
)

type FSStore struct {
	dir string
}

var _ exercise.BlobStore = (*FSStore)(nil)

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating blob dir")
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) path(key string) string {
	// keys are generated UUIDs; Base strips any path separators regardless
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exercise.ErrResourceNotFound
		}
		return nil, errors.Wrap(err, "opening blob")
	}
	return f, nil
}

func (s *FSStore) Save(ctx context.Context, r io.Reader) (string, error) {
	key := uuid.New().String()
	f, err := os.Create(s.path(key))
	if err != nil {
		return "", errors.Wrap(err, "creating blob")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "writing blob")
	}
	return key, nil
}
