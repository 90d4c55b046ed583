// Package artifacts persists artifact metadata records. Every mutation is a
// single-key transaction, so concurrent requests on different artifacts never
// contend on a shared file.
package artifacts

import (
	"context"
	"time"

	"github.com/qrshare/qrshare/internal/server/models"
)

// Repository is the artifact metadata store.
//
// Errors are common.ErrorNotFound, common.ErrConflict, or common.ErrStorage
// wrapping the backend cause.
type Repository interface {
	// Create inserts a new record; ErrConflict if the id already exists.
	Create(ctx context.Context, a *models.Artifact) error
	// Activate clears Pending on a record; ErrorNotFound if it is missing.
	Activate(ctx context.Context, id string) error
	// Get returns the record or ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Artifact, error)
	// IncrementDownloadCount atomically adds one and returns the new count.
	IncrementDownloadCount(ctx context.Context, id string) (int64, error)
	// ListExpired returns ids whose expiry instant is before now.
	ListExpired(ctx context.Context, now time.Time) ([]string, error)
	// Delete removes the record. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}
