package keys

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/server/models"
	"go.etcd.io/bbolt"
)

var bucketKeys = []byte("artifact_keys")

// BoltRepository keeps key records in their own bbolt file so a leaked
// metadata database never carries key material with it.
//
// Values are 8 bytes of big-endian created-at nanos followed by the wrapped key.
type BoltRepository struct {
	db *bbolt.DB
}

var _ Repository = (*BoltRepository)(nil)

func NewBoltRepository(db *bbolt.DB) (*BoltRepository, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKeys)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create bucket: %w", common.ErrStorage, err)
	}
	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) Put(ctx context.Context, rec *models.KeyRecord) error {
	val := make([]byte, 8+len(rec.WrappedKey))
	binary.BigEndian.PutUint64(val, uint64(rec.CreatedAt.UnixNano()))
	copy(val[8:], rec.WrappedKey)

	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKeys)
		if b.Get([]byte(rec.ArtifactID)) != nil {
			return common.ErrConflict
		}
		return b.Put([]byte(rec.ArtifactID), val)
	})
	return wrap(err)
}

func (r *BoltRepository) Get(ctx context.Context, artifactID string) (*models.KeyRecord, error) {
	var rec *models.KeyRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(bucketKeys).Get([]byte(artifactID))
		if val == nil {
			return common.ErrorNotFound
		}
		if len(val) < 8 {
			return fmt.Errorf("%w: short key record", common.ErrCorrupt)
		}
		// val is only valid inside the transaction.
		wrapped := make([]byte, len(val)-8)
		copy(wrapped, val[8:])
		rec = &models.KeyRecord{
			ArtifactID: artifactID,
			WrappedKey: wrapped,
			CreatedAt:  time.Unix(0, int64(binary.BigEndian.Uint64(val[:8]))).UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	return rec, nil
}

func (r *BoltRepository) Delete(ctx context.Context, artifactID string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKeys).Delete([]byte(artifactID))
	})
	return wrap(err)
}

func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrConflict), errors.Is(err, common.ErrCorrupt):
		return err
	default:
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
}
