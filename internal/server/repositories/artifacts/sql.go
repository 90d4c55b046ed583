package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/dbx"
	"github.com/qrshare/qrshare/internal/server/models"
	"github.com/qrshare/qrshare/internal/server/repositories/dialect"
)

// SQLRepository stores artifacts in the artifacts table of a Postgres or
// SQLite database. Timestamps and durations are kept as int64 nanoseconds so
// the schema is identical across dialects.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect.Dialect
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository binds the repository to db using the given dialect.
func NewSQLRepository(db *sql.DB, d dialect.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: d}
}

func (r *SQLRepository) q(query string) string {
	return r.dialect.Rebind(query)
}

func (r *SQLRepository) Create(ctx context.Context, a *models.Artifact) error {
	query := `
		INSERT INTO artifacts (id, original_name, content_type, size, ciphertext_ref,
			created_at, ttl, expires_at, policy, password_hash, download_count, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, r.q(query),
		a.ID, a.OriginalName, a.ContentType, a.Size, a.CiphertextRef,
		a.CreatedAt.UnixNano(), int64(a.TTL), a.ExpiresAt().UnixNano(),
		string(a.Policy.Kind), a.Policy.PasswordHash, a.DownloadCount, a.Pending)
	if err != nil {
		return fmt.Errorf("%w: insert artifact: %w", common.ErrStorage, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", common.ErrStorage, err)
	}

	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrConflict
	default:
		return fmt.Errorf("%w: unexpected rows affected: %d", common.ErrStorage, n)
	}
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Artifact, error) {
	query := `
		SELECT id, original_name, content_type, size, ciphertext_ref,
			created_at, ttl, policy, password_hash, download_count, pending
		FROM artifacts WHERE id = ?`

	var (
		a               models.Artifact
		createdAt, ttl  int64
		policy, pwdHash string
	)
	err := r.db.QueryRowContext(ctx, r.q(query), id).Scan(
		&a.ID, &a.OriginalName, &a.ContentType, &a.Size, &a.CiphertextRef,
		&createdAt, &ttl, &policy, &pwdHash, &a.DownloadCount, &a.Pending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: select artifact: %w", common.ErrStorage, err)
	}

	a.CreatedAt = time.Unix(0, createdAt).UTC()
	a.TTL = time.Duration(ttl)
	a.Policy = models.AccessPolicy{Kind: models.PolicyKind(policy), PasswordHash: pwdHash}
	return &a, nil
}

func (r *SQLRepository) Activate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE artifacts SET pending = ? WHERE id = ?`), false, id)
	if err != nil {
		return fmt.Errorf("%w: activate artifact: %w", common.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", common.ErrStorage, err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// IncrementDownloadCount updates and re-reads the counter in one transaction.
// The UPDATE takes the row's write lock, so concurrent callers serialize and
// each observes its own increment.
func (r *SQLRepository) IncrementDownloadCount(ctx context.Context, id string) (int64, error) {
	var count int64

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, r.q(`UPDATE artifacts SET download_count = download_count + 1 WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("%w: increment: %w", common.ErrStorage, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: rows affected: %w", common.ErrStorage, err)
		}
		if n == 0 {
			return common.ErrorNotFound
		}

		if err := tx.QueryRowContext(ctx, r.q(`SELECT download_count FROM artifacts WHERE id = ?`), id).Scan(&count); err != nil {
			return fmt.Errorf("%w: read count: %w", common.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		if isSentinel(err) || errors.Is(err, common.ErrStorage) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return count, nil
}

func (r *SQLRepository) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT id FROM artifacts WHERE expires_at < ? ORDER BY expires_at`), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("%w: select expired: %w", common.ErrStorage, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan expired: %w", common.ErrStorage, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate expired: %w", common.ErrStorage, err)
	}
	return ids, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.q(`DELETE FROM artifacts WHERE id = ?`), id); err != nil {
		return fmt.Errorf("%w: delete artifact: %w", common.ErrStorage, err)
	}
	return nil
}
