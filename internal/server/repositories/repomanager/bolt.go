package repomanager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/qrshare/qrshare/internal/filex"
	"github.com/qrshare/qrshare/internal/server/repositories/artifacts"
	"github.com/qrshare/qrshare/internal/server/repositories/keys"
	"go.etcd.io/bbolt"
)

const (
	metadataFile = "metadata.db"
	keysFile     = "keys.db"
)

// BoltRepositoryManager keeps metadata and wrapped keys in two bbolt files
// under one directory.
type BoltRepositoryManager struct {
	metaDB    *bbolt.DB
	keysDB    *bbolt.DB
	artifacts *artifacts.BoltRepository
	keys      *keys.BoltRepository
}

var _ RepositoryManager = (*BoltRepositoryManager)(nil)

func openBolt(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return db, nil
}

// NewBoltRepositoryManager opens (creating if needed) the bolt files in dir.
func NewBoltRepositoryManager(dir string) (*BoltRepositoryManager, error) {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}

	metaDB, err := openBolt(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}
	keysDB, err := openBolt(filepath.Join(dir, keysFile))
	if err != nil {
		_ = metaDB.Close()
		return nil, err
	}

	m := &BoltRepositoryManager{metaDB: metaDB, keysDB: keysDB}
	if m.artifacts, err = artifacts.NewBoltRepository(metaDB); err != nil {
		_ = m.Close()
		return nil, err
	}
	if m.keys, err = keys.NewBoltRepository(keysDB); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// RunMigrations is a no-op: buckets are created when the manager opens.
func (m *BoltRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *BoltRepositoryManager) Artifacts() artifacts.Repository {
	return m.artifacts
}

func (m *BoltRepositoryManager) Keys() keys.Repository {
	return m.keys
}

func (m *BoltRepositoryManager) Close() error {
	return errors.Join(m.metaDB.Close(), m.keysDB.Close())
}
