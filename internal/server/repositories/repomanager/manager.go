// Package repomanager opens the configured metadata backend and vends the
// artifact and key repositories bound to it.
package repomanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/qrshare/qrshare/internal/server/repositories/artifacts"
	"github.com/qrshare/qrshare/internal/server/repositories/dialect"
	"github.com/qrshare/qrshare/internal/server/repositories/keys"
)

// Backend names accepted in configuration.
const (
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Artifacts() artifacts.Repository
	Keys() keys.Repository
	Close() error
}

// Options selects and locates the metadata backend.
type Options struct {
	Backend string
	// DSN is used by the SQL backends.
	DSN string
	// DataDir holds the bolt database files.
	DataDir string
}

// Open connects to the backend named in opts and applies migrations.
func Open(ctx context.Context, opts Options) (RepositoryManager, error) {
	var (
		m   RepositoryManager
		err error
	)

	switch strings.ToLower(opts.Backend) {
	case BackendBolt, "":
		m, err = NewBoltRepositoryManager(opts.DataDir)
	default:
		d, perr := dialect.Parse(opts.Backend)
		if perr != nil {
			return nil, perr
		}
		m, err = OpenSQLRepositoryManager(ctx, d, opts.DSN)
	}
	if err != nil {
		return nil, err
	}

	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return m, nil
}
