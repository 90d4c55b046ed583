package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/server/models"
	"github.com/qrshare/qrshare/internal/server/repositories/dialect"
)

// SQLRepository stores key records in the artifact_keys table.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect.Dialect
}

var _ Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *sql.DB, d dialect.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: d}
}

func (r *SQLRepository) Put(ctx context.Context, rec *models.KeyRecord) error {
	query := r.dialect.Rebind(`
		INSERT INTO artifact_keys (artifact_id, wrapped_key, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (artifact_id) DO NOTHING`)

	res, err := r.db.ExecContext(ctx, query, rec.ArtifactID, rec.WrappedKey, rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("%w: insert key: %w", common.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", common.ErrStorage, err)
	}
	if n == 0 {
		return common.ErrConflict
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, artifactID string) (*models.KeyRecord, error) {
	query := r.dialect.Rebind(`SELECT wrapped_key, created_at FROM artifact_keys WHERE artifact_id = ?`)

	rec := models.KeyRecord{ArtifactID: artifactID}
	var createdAt int64
	if err := r.db.QueryRowContext(ctx, query, artifactID).Scan(&rec.WrappedKey, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: select key: %w", common.ErrStorage, err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

func (r *SQLRepository) Delete(ctx context.Context, artifactID string) error {
	query := r.dialect.Rebind(`DELETE FROM artifact_keys WHERE artifact_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, artifactID); err != nil {
		return fmt.Errorf("%w: delete key: %w", common.ErrStorage, err)
	}
	return nil
}
