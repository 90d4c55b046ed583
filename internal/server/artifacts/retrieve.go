package artifacts

import (
	"context"
	"errors"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/cryptox"
	"github.com/qrshare/qrshare/internal/server/metrics"
	"github.com/qrshare/qrshare/internal/server/models"
)

// Download is a successful retrieval.
type Download struct {
	Plaintext []byte
	Artifact  *models.Artifact
	// Count is the download count including this retrieval.
	Count int64
}

// Retrieve checks existence, expiry and the access policy, then decrypts the
// payload and counts the download. Plaintext is only returned whole and
// authenticated. Errors are common.ErrorNotFound, ErrExpired, ErrDenied,
// ErrCorrupt or ErrStorage.
func (s *Service) Retrieve(ctx context.Context, id, password string) (*Download, error) {
	s.kickSweeper()

	d, err := s.retrieve(ctx, id, password)
	s.metrics.IncRetrieval(outcome(err))
	if err != nil {
		s.log.Debug(ctx, "retrieve refused", "id", id, "error", err)
		return nil, err
	}
	s.log.Info(ctx, "artifact served", "id", id, "count", d.Count)
	return d, nil
}

func (s *Service) retrieve(ctx context.Context, id, password string) (*Download, error) {
	// shared with other readers, excluded from sweep and revoke
	release := s.locks.Shared(id)
	defer release()

	a, err := s.liveArtifact(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.Policy.RequiresPassword() {
		if password == "" {
			return nil, common.ErrDenied
		}
		ok, err := cryptox.VerifyPassword(a.Policy.PasswordHash, []byte(password))
		if err != nil {
			return nil, errors.Join(common.ErrCorrupt, err)
		}
		if !ok {
			return nil, common.ErrDenied
		}
	}

	key, err := s.custody.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	sealed, err := s.blobs.Get(ctx, id, a.CiphertextRef)
	if err != nil {
		return nil, err
	}

	plaintext, err := cryptox.Open(key, sealed, []byte(id))
	if err != nil {
		return nil, err
	}

	count, err := s.repo.IncrementDownloadCount(ctx, id)
	if err != nil {
		common.WipeByteArray(plaintext)
		return nil, err
	}
	a.DownloadCount = count

	return &Download{Plaintext: plaintext, Artifact: a, Count: count}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, common.ErrorNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, common.ErrExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, common.ErrDenied):
		return metrics.OutcomeDenied
	case errors.Is(err, common.ErrCorrupt):
		return metrics.OutcomeCorrupt
	default:
		return metrics.OutcomeError
	}
}
