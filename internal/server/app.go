// Package server wires the qrshare server together: metadata and key
// repositories, blob storage, key custody, the artifact service and its
// sweeper, and the HTTP and gRPC adapters. It also handles graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/qrshare/qrshare/internal/logging"
	"github.com/qrshare/qrshare/internal/server/artifacts"
	"github.com/qrshare/qrshare/internal/server/blobs"
	"github.com/qrshare/qrshare/internal/server/config"
	"github.com/qrshare/qrshare/internal/server/custody"
	"github.com/qrshare/qrshare/internal/server/httpserver"
	"github.com/qrshare/qrshare/internal/server/links"
	"github.com/qrshare/qrshare/internal/server/metrics"
	"github.com/qrshare/qrshare/internal/server/repositories/repomanager"

	gs "github.com/qrshare/qrshare/internal/server/grpc"
)

// Seams for tests.
var (
	openRepositories = repomanager.Open
	newS3Store       = blobs.NewS3Store
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	service *artifacts.Service
	sweeper *artifacts.Sweeper
	signer  *links.Signer
	metrics *metrics.Prom
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	ctx := context.Background()

	rm, err := openRepositories(ctx, repomanager.Options{
		Backend: c.MetadataBackend,
		DSN:     c.DatabaseDSN,
		DataDir: c.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := build(ctx, c, logger, rm)
	if err != nil {
		_ = rm.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, rm repomanager.RepositoryManager) (*App, error) {
	store, err := openBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	kc, err := custody.New(rm.Keys(), []byte(c.MasterKey))
	if err != nil {
		return nil, fmt.Errorf("key custody init error: %w", err)
	}

	signer, err := links.NewSigner([]byte(c.LinkSecret))
	if err != nil {
		return nil, fmt.Errorf("link signer init error: %w", err)
	}

	prom := metrics.NewProm("qrshare")
	svc := artifacts.NewService(rm.Artifacts(), kc, store,
		artifacts.WithTTL(c.TTL),
		artifacts.WithLogger(logger),
		artifacts.WithMetrics(prom),
	)

	return &App{
		config:  c,
		logger:  logger,
		repos:   rm,
		service: svc,
		sweeper: artifacts.NewSweeper(svc, c.SweepInterval),
		signer:  signer,
		metrics: prom,
	}, nil
}

func openBlobStore(ctx context.Context, c *config.Config) (blobs.Store, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return newS3Store(ctx, blobs.S3Options{
			Bucket:          c.S3Bucket,
			Region:          c.S3Region,
			Endpoint:        c.S3BaseEndpoint,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			UsePathStyle:    c.S3UsePathStyle,
			Prefix:          c.S3Prefix,
		})
	default:
		return blobs.NewFileStore(filepath.Join(c.DataDir, "blobs"))
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves HTTP and gRPC and runs the sweeper until ctx is done, a signal
// arrives or one of them fails. Repositories are closed on return.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	httpSrv := httpserver.New(httpserver.Options{
		Addr:            app.config.EndpointAddrHTTP,
		BaseURL:         app.config.BaseURL,
		MaxUploadBytes:  app.config.MaxUploadBytes,
		ShutdownTimeout: app.config.ShutdownTimeout,
	}, app.service, app.signer, app.logger, app.metrics)

	grpcSrv := gs.NewGRPCServer(gs.Options{
		Addr:           app.config.EndpointAddrGRPC,
		BaseURL:        app.config.BaseURL,
		MaxUploadBytes: app.config.MaxUploadBytes,
	}, app.logger, app.service, app.signer, app.metrics)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				app.logger.Error(ctx, name+" failed", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	start("grpc", grpcSrv.Run)
	start("http", httpSrv.Run)
	start("sweeper", app.sweeper.Run)

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "Stopped")

	if err := app.repos.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close repositories: %w", err))
	}
	return errors.Join(errs...)
}
