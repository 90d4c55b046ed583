package artifacts

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/server/models"
	"go.etcd.io/bbolt"
)

var (
	bucketArtifacts = []byte("artifacts")
	bucketExpiry    = []byte("artifacts_expiry")
)

// BoltRepository stores artifacts in bbolt. Records are gob-encoded under
// their id; a second bucket indexes ids by expiry instant so ListExpired is
// an ordered prefix scan instead of a full decode.
type BoltRepository struct {
	db *bbolt.DB
}

var _ Repository = (*BoltRepository)(nil)

// NewBoltRepository creates the buckets it needs on db.
func NewBoltRepository(db *bbolt.DB) (*BoltRepository, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketArtifacts, bucketExpiry} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	return &BoltRepository{db: db}, nil
}

// expiryKey is big-endian unix nanos followed by the id, so cursor order is
// expiry order.
func expiryKey(at time.Time, id string) []byte {
	k := make([]byte, 8+len(id))
	binary.BigEndian.PutUint64(k, uint64(at.UnixNano()))
	copy(k[8:], id)
	return k
}

func encodeArtifact(a *models.Artifact) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeArtifact(data []byte) (*models.Artifact, error) {
	var a models.Artifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *BoltRepository) Create(ctx context.Context, a *models.Artifact) error {
	data, err := encodeArtifact(a)
	if err != nil {
		return fmt.Errorf("%w: encode artifact: %w", common.ErrStorage, err)
	}

	err = r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketArtifacts)
		if b.Get([]byte(a.ID)) != nil {
			return common.ErrConflict
		}
		if err := b.Put([]byte(a.ID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketExpiry).Put(expiryKey(a.ExpiresAt(), a.ID), []byte{})
	})
	return wrapBolt(err)
}

func (r *BoltRepository) Get(ctx context.Context, id string) (*models.Artifact, error) {
	var a *models.Artifact
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketArtifacts).Get([]byte(id))
		if data == nil {
			return common.ErrorNotFound
		}
		var err error
		a, err = decodeArtifact(data)
		return err
	})
	if err != nil {
		return nil, wrapBolt(err)
	}
	return a, nil
}

func (r *BoltRepository) Activate(ctx context.Context, id string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketArtifacts)
		data := b.Get([]byte(id))
		if data == nil {
			return common.ErrorNotFound
		}
		a, err := decodeArtifact(data)
		if err != nil {
			return err
		}
		if !a.Pending {
			return nil
		}
		a.Pending = false
		updated, err := encodeArtifact(a)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
	return wrapBolt(err)
}

func (r *BoltRepository) IncrementDownloadCount(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketArtifacts)
		data := b.Get([]byte(id))
		if data == nil {
			return common.ErrorNotFound
		}
		a, err := decodeArtifact(data)
		if err != nil {
			return err
		}
		a.DownloadCount++
		updated, err := encodeArtifact(a)
		if err != nil {
			return err
		}
		count = a.DownloadCount
		return b.Put([]byte(id), updated)
	})
	if err != nil {
		return 0, wrapBolt(err)
	}
	return count, nil
}

func (r *BoltRepository) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	limit := uint64(now.UnixNano())
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketExpiry).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) < 8 || binary.BigEndian.Uint64(k[:8]) >= limit {
				break
			}
			ids = append(ids, string(k[8:]))
		}
		return nil
	})
	if err != nil {
		return nil, wrapBolt(err)
	}
	return ids, nil
}

func (r *BoltRepository) Delete(ctx context.Context, id string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketArtifacts)
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		a, err := decodeArtifact(data)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketExpiry).Delete(expiryKey(a.ExpiresAt(), id)); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
	return wrapBolt(err)
}

// wrapBolt passes sentinel errors through and marks everything else as a
// storage failure.
func wrapBolt(err error) error {
	switch {
	case err == nil:
		return nil
	case isSentinel(err):
		return err
	default:
		return fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
}
