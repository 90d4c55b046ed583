// Package httpserver is the browser-facing adapter: upload form target,
// download links, QR images and download stats, served with gin.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qrshare/qrshare/internal/logging"
	"github.com/qrshare/qrshare/internal/server/artifacts"
	"github.com/qrshare/qrshare/internal/server/links"
	"github.com/qrshare/qrshare/internal/server/metrics"
)

// Store is the slice of the artifact service the HTTP routes use.
type Store interface {
	Upload(ctx context.Context, in artifacts.UploadInput) (*artifacts.Receipt, error)
	Retrieve(ctx context.Context, id, password string) (*artifacts.Download, error)
	DownloadCount(ctx context.Context, id string) (int64, error)
	Revoke(ctx context.Context, id string) error
	PutSideArtifact(ctx context.Context, id, name string, data []byte) error
	GetSideArtifact(ctx context.Context, id, name string) ([]byte, error)
}

type Options struct {
	Addr string
	// BaseURL is the externally visible origin used in links.
	BaseURL         string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// Server wraps the gin engine with graceful shutdown helpers.
type Server struct {
	opts    Options
	engine  *gin.Engine
	store   Store
	signer  *links.Signer
	log     logging.Logger
	metrics metrics.RequestMetrics
}

// New constructs the HTTP server with default middleware and routes.
func New(opts Options, store Store, signer *links.Signer, log logging.Logger, m metrics.RequestMetrics) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if m == nil {
		m = metrics.Noop{}
	}

	s := &Server{
		opts:    opts,
		engine:  gin.New(),
		store:   store,
		signer:  signer,
		log:     log.With("module", "httpserver"),
		metrics: m,
	}
	s.engine.Use(gin.Recovery(), s.observe())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.engine.POST("/upload", s.upload)
	s.engine.GET("/d/:token", s.download)
	s.engine.POST("/d/:token", s.download)
	s.engine.GET("/qr/:id", s.qr)
	s.engine.GET("/stats/:id", s.stats)
	s.engine.DELETE("/artifacts/:id", s.revoke)
}

// Handler exposes the engine, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context
// cancellation.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "HTTP server listening", "addr", s.opts.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info(ctx, "context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// observe logs and measures every request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		s.metrics.ObserveRequest("http", route, http.StatusText(status), elapsed.Seconds())
		s.log.Debug(c.Request.Context(), "request",
			"method", c.Request.Method, "route", route, "status", status, "duration", elapsed)
	}
}
