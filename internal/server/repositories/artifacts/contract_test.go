package artifacts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newArtifact(id string, createdAt time.Time, ttl time.Duration) *models.Artifact {
	return &models.Artifact{
		ID:            id,
		OriginalName:  id + ".bin",
		ContentType:   "application/octet-stream",
		Size:          42,
		CiphertextRef: common.PayloadBlobName,
		CreatedAt:     createdAt,
		TTL:           ttl,
		Policy:        models.Public(),
	}
}

// testRepository runs the behaviour every Repository implementation shares.
func testRepository(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		a := newArtifact("a1", baseTime, time.Minute)
		a.Policy = models.PasswordProtected("$argon2id$hash")

		require.NoError(t, repo.Create(ctx, a))

		got, err := repo.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, a.OriginalName, got.OriginalName)
		assert.Equal(t, a.ContentType, got.ContentType)
		assert.Equal(t, a.Size, got.Size)
		assert.Equal(t, a.CiphertextRef, got.CiphertextRef)
		assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, a.TTL, got.TTL)
		assert.Equal(t, a.Policy, got.Policy)
		assert.Zero(t, got.DownloadCount)
	})

	t.Run("CreateDuplicateConflicts", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newArtifact("dup", baseTime, time.Minute)))

		other := newArtifact("dup", baseTime.Add(time.Hour), time.Hour)
		require.ErrorIs(t, repo.Create(ctx, other), common.ErrConflict)

		got, err := repo.Get(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, time.Minute, got.TTL, "original record must be untouched")
	})

	t.Run("PendingUntilActivated", func(t *testing.T) {
		repo := newRepo(t)
		a := newArtifact("p", baseTime, time.Minute)
		a.Pending = true
		require.NoError(t, repo.Create(ctx, a))

		got, err := repo.Get(ctx, "p")
		require.NoError(t, err)
		assert.True(t, got.Pending)

		ids, err := repo.ListExpired(ctx, baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"p"}, ids, "pending records are indexed by expiry")

		require.NoError(t, repo.Activate(ctx, "p"))
		require.NoError(t, repo.Activate(ctx, "p"))

		got, err = repo.Get(ctx, "p")
		require.NoError(t, err)
		assert.False(t, got.Pending)
		assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("ActivateMissing", func(t *testing.T) {
		repo := newRepo(t)
		require.ErrorIs(t, repo.Activate(ctx, "nope"), common.ErrorNotFound)
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, "nope")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("IncrementMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.IncrementDownloadCount(ctx, "nope")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("IncrementSequential", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newArtifact("inc", baseTime, time.Minute)))

		for want := int64(1); want <= 3; want++ {
			got, err := repo.IncrementDownloadCount(ctx, "inc")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}

		a, err := repo.Get(ctx, "inc")
		require.NoError(t, err)
		assert.Equal(t, int64(3), a.DownloadCount)
	})

	t.Run("IncrementConcurrent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newArtifact("hot", baseTime, time.Minute)))

		const n = 40
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = make(map[int64]bool, n)
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := repo.IncrementDownloadCount(ctx, "hot")
				assert.NoError(t, err)
				mu.Lock()
				seen[c] = true
				mu.Unlock()
			}()
		}
		wg.Wait()

		a, err := repo.Get(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, int64(n), a.DownloadCount)
		assert.Len(t, seen, n, "every caller must observe a distinct count")
	})

	t.Run("ListExpiredOrderedAndExclusive", func(t *testing.T) {
		repo := newRepo(t)
		// expires at +2m, +1m, +3m, +10m
		require.NoError(t, repo.Create(ctx, newArtifact("b", baseTime, 2*time.Minute)))
		require.NoError(t, repo.Create(ctx, newArtifact("a", baseTime, time.Minute)))
		require.NoError(t, repo.Create(ctx, newArtifact("c", baseTime, 3*time.Minute)))
		require.NoError(t, repo.Create(ctx, newArtifact("live", baseTime, 10*time.Minute)))

		ids, err := repo.ListExpired(ctx, baseTime.Add(3*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids, "expiry exactly at now is not yet expired")

		ids, err = repo.ListExpired(ctx, baseTime)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newArtifact("gone", baseTime, time.Minute)))

		require.NoError(t, repo.Delete(ctx, "gone"))
		require.NoError(t, repo.Delete(ctx, "gone"))

		_, err := repo.Get(ctx, "gone")
		require.ErrorIs(t, err, common.ErrorNotFound)

		ids, err := repo.ListExpired(ctx, baseTime.Add(time.Hour))
		require.NoError(t, err)
		assert.NotContains(t, ids, "gone")
	})

	t.Run("DeleteThenRecreate", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newArtifact("x", baseTime, time.Minute)))
		require.NoError(t, repo.Delete(ctx, "x"))
		require.NoError(t, repo.Create(ctx, newArtifact("x", baseTime, time.Minute)))
	})
}
