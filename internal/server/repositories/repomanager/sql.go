package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/qrshare/qrshare/internal/server/migrations"
	"github.com/qrshare/qrshare/internal/server/repositories/artifacts"
	"github.com/qrshare/qrshare/internal/server/repositories/dialect"
	"github.com/qrshare/qrshare/internal/server/repositories/keys"
	_ "modernc.org/sqlite"
)

// sqliteBusyTimeoutMs bounds how long a SQLite writer waits on a locked file.
const sqliteBusyTimeoutMs = 5000

var (
	sqlOpen   = sql.Open
	migrateUp = migrations.Up
)

// SQLRepositoryManager vends SQL-backed repositories sharing one pool.
type SQLRepositoryManager struct {
	db      *sql.DB
	dialect dialect.Dialect
}

var _ RepositoryManager = (*SQLRepositoryManager)(nil)

// NewSQLRepositoryManager wraps an already open database.
func NewSQLRepositoryManager(db *sql.DB, d dialect.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{db: db, dialect: d}
}

// OpenSQLRepositoryManager opens dsn with the dialect's driver and checks
// connectivity.
func OpenSQLRepositoryManager(ctx context.Context, d dialect.Dialect, dsn string) (*SQLRepositoryManager, error) {
	db, err := sqlOpen(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}

	if d == dialect.SQLite {
		// one connection keeps :memory: databases shared and avoids
		// SQLITE_BUSY between our own writers
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeoutMs)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}
	return NewSQLRepositoryManager(db, d), nil
}

// RunMigrations applies the embedded goose migrations for the dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context) error {
	return migrateUp(ctx, m.db, m.dialect)
}

func (m *SQLRepositoryManager) Artifacts() artifacts.Repository {
	return artifacts.NewSQLRepository(m.db, m.dialect)
}

func (m *SQLRepositoryManager) Keys() keys.Repository {
	return keys.NewSQLRepository(m.db, m.dialect)
}

func (m *SQLRepositoryManager) Close() error {
	return m.db.Close()
}
