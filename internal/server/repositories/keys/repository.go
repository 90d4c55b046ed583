// Package keys persists wrapped per-artifact data keys, separately from the
// artifact metadata.
package keys

import (
	"context"

	"github.com/qrshare/qrshare/internal/server/models"
)

// Repository stores one KeyRecord per artifact id.
type Repository interface {
	// Put stores rec; ErrConflict if a key already exists for the artifact.
	Put(ctx context.Context, rec *models.KeyRecord) error
	// Get returns the record or ErrorNotFound.
	Get(ctx context.Context, artifactID string) (*models.KeyRecord, error)
	// Delete removes the record. Deleting a missing id is not an error.
	Delete(ctx context.Context, artifactID string) error
}
