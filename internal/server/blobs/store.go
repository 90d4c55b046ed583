// Package blobs stores sealed artifact payloads and their side blobs, either
// on the local filesystem or in an S3-compatible bucket. Blobs are grouped by
// artifact id so one DeleteAll removes everything an artifact owns.
package blobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/qrshare/qrshare/internal/common"
)

type Store interface {
	// Put writes data under (id, name), replacing any previous blob.
	Put(ctx context.Context, id, name string, data []byte) error
	// Get returns the blob or common.ErrorNotFound.
	Get(ctx context.Context, id, name string) ([]byte, error)
	// DeleteAll removes every blob of id. Missing blobs are not an error.
	DeleteAll(ctx context.Context, id string) error
}

// validateSegment rejects anything that could escape the artifact's
// directory or key prefix.
func validateSegment(kind, s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return fmt.Errorf("%w: bad blob %s %q", common.ErrorInvalidInput, kind, s)
	}
	return nil
}

func validateRef(id, name string) error {
	if err := validateSegment("id", id); err != nil {
		return err
	}
	return validateSegment("name", name)
}
