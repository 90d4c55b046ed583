package artifacts

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/qrshare/qrshare/internal/server/blobs"
	"github.com/qrshare/qrshare/internal/server/custody"
	artifactrepo "github.com/qrshare/qrshare/internal/server/repositories/artifacts"
	"github.com/qrshare/qrshare/internal/server/repositories/keys"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// env is a fully wired store on temp-dir bolt files and a file blob store.
type env struct {
	svc   *Service
	clock *fakeClock
	repo  artifactrepo.Repository
	keys  keys.Repository
	blobs blobs.Store
}

type envOption func(*envConfig)

type envConfig struct {
	wrapRepo  func(artifactrepo.Repository) artifactrepo.Repository
	wrapBlobs func(blobs.Store) blobs.Store
	opts      []Option
}

func withRepo(fn func(artifactrepo.Repository) artifactrepo.Repository) envOption {
	return func(c *envConfig) { c.wrapRepo = fn }
}

func withBlobs(fn func(blobs.Store) blobs.Store) envOption {
	return func(c *envConfig) { c.wrapBlobs = fn }
}

func withServiceOptions(opts ...Option) envOption {
	return func(c *envConfig) { c.opts = append(c.opts, opts...) }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	cfg := envConfig{
		wrapRepo:  func(r artifactrepo.Repository) artifactrepo.Repository { return r },
		wrapBlobs: func(s blobs.Store) blobs.Store { return s },
	}
	for _, o := range opts {
		o(&cfg)
	}

	dir := t.TempDir()
	metaDB, err := bbolt.Open(filepath.Join(dir, "metadata.db"), 0o600, nil)
	require.NoError(t, err)
	keysDB, err := bbolt.Open(filepath.Join(dir, "keys.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = metaDB.Close()
		_ = keysDB.Close()
	})

	repo, err := artifactrepo.NewBoltRepository(metaDB)
	require.NoError(t, err)
	keyRepo, err := keys.NewBoltRepository(keysDB)
	require.NoError(t, err)
	store, err := blobs.NewFileStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	kc, err := custody.New(keyRepo, []byte("test-master-secret"))
	require.NoError(t, err)

	clock := newFakeClock()
	e := &env{
		clock: clock,
		repo:  cfg.wrapRepo(repo),
		keys:  keyRepo,
		blobs: cfg.wrapBlobs(store),
	}
	svcOpts := append([]Option{WithClock(clock.Now), WithTTL(15 * time.Minute)}, cfg.opts...)
	e.svc = NewService(e.repo, kc, e.blobs, svcOpts...)
	return e
}

func (e *env) upload(t *testing.T, data, password string) *Receipt {
	t.Helper()
	r, err := e.svc.Upload(context.Background(), UploadInput{
		Data:         []byte(data),
		OriginalName: "report.pdf",
		ContentType:  "application/pdf",
		Password:     password,
	})
	require.NoError(t, err)
	return r
}
