// Package artifacts is the ephemeral encrypted artifact store: ingestion,
// gated retrieval, download accounting and expiry. It composes the metadata
// repository, key custody and blob storage, and is the only package that
// mutates them.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/logging"
	"github.com/qrshare/qrshare/internal/server/blobs"
	"github.com/qrshare/qrshare/internal/server/locks"
	"github.com/qrshare/qrshare/internal/server/metrics"
	"github.com/qrshare/qrshare/internal/server/models"
	artifactrepo "github.com/qrshare/qrshare/internal/server/repositories/artifacts"
)

// KeyCustody is the per-artifact key owner. *custody.Custody implements it.
type KeyCustody interface {
	GenerateAndStore(ctx context.Context, id string) ([]byte, error)
	Fetch(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo    artifactrepo.Repository
	custody KeyCustody
	blobs   blobs.Store
	locks   *locks.Registry
	log     logging.Logger
	metrics metrics.Metrics
	ttl     time.Duration
	now     func() time.Time
	newID   func() string

	// trigger is installed by a Sweeper for opportunistic sweeps.
	trigger atomic.Pointer[func()]
}

type Option func(*Service)

// WithTTL sets the retention window for new artifacts.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithIDGenerator replaces the random id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(repo artifactrepo.Repository, custody KeyCustody, store blobs.Store, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		custody: custody,
		blobs:   store,
		locks:   locks.NewRegistry(),
		log:     logging.Nop{},
		metrics: metrics.Noop{},
		ttl:     common.DefaultTTL,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "artifacts")
	return s
}

// TTL is the retention window applied to new artifacts.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) kickSweeper() {
	if fn := s.trigger.Load(); fn != nil {
		(*fn)()
	}
}

// DownloadCount returns the number of successful retrievals of id.
func (s *Service) DownloadCount(ctx context.Context, id string) (int64, error) {
	a, err := s.liveArtifact(ctx, id)
	if err != nil {
		return 0, err
	}
	return a.DownloadCount, nil
}

// Revoke deletes id immediately, ahead of its expiry.
func (s *Service) Revoke(ctx context.Context, id string) error {
	deleted, err := s.purge(ctx, id, false)
	if err != nil {
		return err
	}
	if !deleted {
		return common.ErrorNotFound
	}
	s.log.Info(ctx, "artifact revoked", "id", id)
	return nil
}

// PutSideArtifact stores a companion blob for a live artifact. Side blobs
// are deleted together with the artifact.
func (s *Service) PutSideArtifact(ctx context.Context, id, name string, data []byte) error {
	if name == common.PayloadBlobName {
		return fmt.Errorf("%w: reserved blob name %q", common.ErrorInvalidInput, name)
	}

	release := s.locks.Shared(id)
	defer release()

	if _, err := s.liveArtifact(ctx, id); err != nil {
		return err
	}
	return s.blobs.Put(ctx, id, name, data)
}

// GetSideArtifact returns a companion blob of a live artifact.
func (s *Service) GetSideArtifact(ctx context.Context, id, name string) ([]byte, error) {
	if name == common.PayloadBlobName {
		return nil, fmt.Errorf("%w: reserved blob name %q", common.ErrorInvalidInput, name)
	}

	release := s.locks.Shared(id)
	defer release()

	if _, err := s.liveArtifact(ctx, id); err != nil {
		return nil, err
	}
	return s.blobs.Get(ctx, id, name)
}

func (s *Service) liveArtifact(ctx context.Context, id string) (*models.Artifact, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Pending {
		return nil, common.ErrorNotFound
	}
	if a.Expired(s.now()) {
		return nil, common.ErrExpired
	}
	return a, nil
}

// purge deletes blobs, then the key, then metadata, under the artifact's
// exclusive lock. The record is re-read under the lock; if it is gone the
// call is a no-op and reports false. With onlyExpired set, a record that is
// still live is left alone; without it, a pending record is, since its
// ingestion may still be running.
func (s *Service) purge(ctx context.Context, id string, onlyExpired bool) (bool, error) {
	release := s.locks.Exclusive(id)
	defer release()

	a, err := s.repo.Get(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if onlyExpired && !a.Expired(s.now()) {
		return false, nil
	}
	if !onlyExpired && a.Pending {
		return false, nil
	}

	if err := s.blobs.DeleteAll(ctx, id); err != nil {
		return false, fmt.Errorf("delete blobs: %w", err)
	}
	if err := s.custody.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete key: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete metadata: %w", err)
	}
	return true, nil
}

// sanitizeName keeps only the final path element of a client-supplied name.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
