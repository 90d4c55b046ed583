// Package custody owns the per-artifact data keys. Keys are persisted only
// in wrapped form, sealed under a key-encryption key derived from the
// configured master secret, with the artifact id as additional data so a
// wrapped key cannot be replayed under another id.
package custody

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/cryptox"
	"github.com/qrshare/qrshare/internal/server/models"
	"github.com/qrshare/qrshare/internal/server/repositories/keys"
)

// kekInfo scopes the HKDF output so the master secret can be shared with
// other derivations.
const kekInfo = "qrshare/artifact-keys/v1"

type Custody struct {
	repo keys.Repository
	kek  []byte
	now  func() time.Time
}

// New derives the KEK from masterSecret.
func New(repo keys.Repository, masterSecret []byte) (*Custody, error) {
	kek, err := cryptox.DeriveKEK(masterSecret, kekInfo)
	if err != nil {
		return nil, err
	}
	return &Custody{repo: repo, kek: kek, now: time.Now}, nil
}

// GenerateAndStore creates a fresh key for id and persists it wrapped. The
// caller owns the returned plaintext key and should wipe it when done.
func (c *Custody) GenerateAndStore(ctx context.Context, id string) ([]byte, error) {
	key := cryptox.NewKey()

	wrapped, err := cryptox.Seal(c.kek, key, []byte(id))
	if err != nil {
		common.WipeByteArray(key)
		return nil, fmt.Errorf("%w: wrap key: %w", common.ErrStorage, err)
	}

	err = c.repo.Put(ctx, &models.KeyRecord{ArtifactID: id, WrappedKey: wrapped, CreatedAt: c.now().UTC()})
	if err != nil {
		common.WipeByteArray(key)
		if errors.Is(err, common.ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: store key: %w", common.ErrStorage, err)
	}
	return key, nil
}

// Fetch returns the plaintext key for id, common.ErrorNotFound when none is
// stored, or common.ErrCorrupt when the wrapped bytes do not unwrap.
func (c *Custody) Fetch(ctx context.Context, id string) ([]byte, error) {
	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := cryptox.Open(c.kek, rec.WrappedKey, []byte(id))
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	if len(key) != common.KeySize {
		common.WipeByteArray(key)
		return nil, fmt.Errorf("%w: unwrapped key has %d bytes", common.ErrCorrupt, len(key))
	}
	return key, nil
}

// Delete removes the key for id. Missing keys are not an error.
func (c *Custody) Delete(ctx context.Context, id string) error {
	return c.repo.Delete(ctx, id)
}
