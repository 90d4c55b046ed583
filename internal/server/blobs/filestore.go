package blobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/filex"
)

// FileStore keeps blobs at {base}/{id[:2]}/{id}/{name}. The two-character
// shard keeps any single directory small.
type FileStore struct {
	baseDir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates baseDir if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: empty blob directory", common.ErrorInvalidInput)
	}
	abs, err := filex.EnsureDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return &FileStore{baseDir: abs}, nil
}

func (s *FileStore) artifactDir(id string) string {
	shard := id
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.baseDir, shard, id)
}

func (s *FileStore) Put(ctx context.Context, id, name string, data []byte) error {
	if err := validateRef(id, name); err != nil {
		return err
	}

	dir := s.artifactDir(id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	if err := filex.WriteFileAtomic(filepath.Join(dir, name), data, 0o600); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id, name string) ([]byte, error) {
	if err := validateRef(id, name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.artifactDir(id), name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return data, nil
}

func (s *FileStore) DeleteAll(ctx context.Context, id string) error {
	if err := validateSegment("id", id); err != nil {
		return err
	}
	if err := os.RemoveAll(s.artifactDir(id)); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return nil
}
