// Package grpc exposes the artifact service over gRPC, using the protobuf
// contract from internal/rpc.
package grpc

import (
	"context"
	"math"
	"net"

	"github.com/qrshare/qrshare/internal/logging"
	"github.com/qrshare/qrshare/internal/rpc"
	"github.com/qrshare/qrshare/internal/server/artifacts"
	"github.com/qrshare/qrshare/internal/server/links"
	"github.com/qrshare/qrshare/internal/server/metrics"
	"google.golang.org/grpc"
)

// envelope leaves room for the non-payload fields of an upload.
const envelope = 1 << 20

// Store is the slice of the artifact service the gRPC API uses.
type Store interface {
	Upload(ctx context.Context, in artifacts.UploadInput) (*artifacts.Receipt, error)
	Retrieve(ctx context.Context, id, password string) (*artifacts.Download, error)
	DownloadCount(ctx context.Context, id string) (int64, error)
	Revoke(ctx context.Context, id string) error
}

type Options struct {
	Addr           string
	BaseURL        string
	MaxUploadBytes int64
}

type GRPCServer struct {
	rpc.UnimplementedArtifactServiceServer
	opts    Options
	store   Store
	signer  *links.Signer
	logger  logging.Logger
	metrics metrics.RequestMetrics
}

func NewGRPCServer(opts Options, l logging.Logger, store Store, signer *links.Signer, m metrics.RequestMetrics) *GRPCServer {
	if m == nil {
		m = metrics.Noop{}
	}
	return &GRPCServer{
		opts:    opts,
		store:   store,
		signer:  signer,
		logger:  l.With("module", "grpc_server"),
		metrics: m,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.observeInterceptor, s.linkTokenInterceptor),
		grpc.MaxRecvMsgSize(recvLimit(s.opts.MaxUploadBytes)),
	)
	rpc.RegisterArtifactServiceServer(srv, s)
	return srv
}

// recvLimit is the largest request accepted for a given upload limit. With
// no limit it is the largest message gRPC can frame, not its 4 MiB default.
func recvLimit(maxUpload int64) int {
	if maxUpload <= 0 || maxUpload > math.MaxInt32-envelope {
		return math.MaxInt32
	}
	return int(maxUpload) + envelope
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "Starting gRPC server", "address", s.opts.Addr)
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	return srv.Serve(lis)
}
