package artifacts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/cryptox"
	"github.com/qrshare/qrshare/internal/server/models"
)

// Receipt is what the uploader gets back.
type Receipt struct {
	ID string
	// KeyHandle is the base64url data key, set only for public artifacts.
	KeyHandle string
	ExpiresAt time.Time
}

// UploadInput is an upload as received from a transport adapter.
type UploadInput struct {
	Data         []byte
	OriginalName string
	ContentType  string
	// Password, when non-empty, gates retrieval.
	Password string
}

// Upload derives the access policy from the optional password and ingests.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Receipt, error) {
	policy := models.Public()
	if in.Password != "" {
		policy = models.PasswordProtected(cryptox.HashPassword([]byte(in.Password)))
	}
	return s.Ingest(ctx, in.Data, in.OriginalName, in.ContentType, policy)
}

// Ingest encrypts data under a fresh per-artifact key and persists
// metadata, key and ciphertext. The metadata record is written first as
// pending and only activated once key and ciphertext are durable, so a
// partially ingested artifact is never served, yet is always indexed for
// the sweeper. On any failure the steps already done are undone and the
// error wraps common.ErrStorage.
func (s *Service) Ingest(ctx context.Context, data []byte, originalName, contentType string, policy models.AccessPolicy) (*Receipt, error) {
	s.kickSweeper()

	id := s.newID()
	log := s.log.With("id", id)

	var undo []func(context.Context) error
	fail := func(step string, err error) (*Receipt, error) {
		s.rollback(ctx, id, undo)
		s.metrics.IncIngestFailed()
		log.Error(ctx, "ingest failed", "step", step, "error", err)
		if !errors.Is(err, common.ErrStorage) {
			err = fmt.Errorf("%w: %s: %w", common.ErrStorage, step, err)
		}
		return nil, err
	}

	a := &models.Artifact{
		ID:            id,
		OriginalName:  sanitizeName(originalName),
		ContentType:   contentType,
		Size:          int64(len(data)),
		CiphertextRef: common.PayloadBlobName,
		CreatedAt:     s.now().UTC(),
		TTL:           s.ttl,
		Policy:        policy,
		Pending:       true,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		// the insert may have landed before the error; a conflict means the
		// record belongs to someone else
		if !errors.Is(err, common.ErrConflict) {
			undo = append(undo, func(ctx context.Context) error { return s.repo.Delete(ctx, id) })
		}
		return fail("create metadata", err)
	}
	undo = append(undo, func(ctx context.Context) error { return s.repo.Delete(ctx, id) })

	key, err := s.custody.GenerateAndStore(ctx, id)
	if err != nil {
		return fail("store key", err)
	}
	defer common.WipeByteArray(key)
	undo = append(undo, func(ctx context.Context) error { return s.custody.Delete(ctx, id) })

	sealed, err := cryptox.Seal(key, data, []byte(id))
	if err != nil {
		return fail("encrypt", err)
	}

	undo = append(undo, func(ctx context.Context) error { return s.blobs.DeleteAll(ctx, id) })
	if err := s.blobs.Put(ctx, id, common.PayloadBlobName, sealed); err != nil {
		return fail("store ciphertext", err)
	}

	if err := ctx.Err(); err != nil {
		return fail("activate", err)
	}
	if err := s.repo.Activate(ctx, id); err != nil {
		return fail("activate", err)
	}

	r := &Receipt{ID: id, ExpiresAt: a.ExpiresAt()}
	if !policy.RequiresPassword() {
		r.KeyHandle = base64.RawURLEncoding.EncodeToString(key)
	}

	s.metrics.IncIngested(string(policy.Kind))
	log.Info(ctx, "artifact stored", "bytes", len(data), "policy", policy.Kind, "expires_at", r.ExpiresAt)
	return r, nil
}

// rollback runs undo steps newest first on a context that outlives the
// caller's cancellation. It stops at the first failing step: the metadata
// record is undone last, so anything left behind is still reachable by
// the sweeper once the record expires.
func (s *Service) rollback(ctx context.Context, id string, undo []func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		if err := undo[i](ctx); err != nil {
			s.log.Error(ctx, "rollback incomplete, left for sweeper", "id", id, "error", err)
			return
		}
	}
}
