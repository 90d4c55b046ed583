package grpc

import (
	"context"
	"time"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ctxKey string

const artifactIDKey ctxKey = "artifactID"

// linkTokenInterceptor guards Revoke: the caller must hold the artifact's
// link token, in metadata or in the request.
func (s *GRPCServer) linkTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod == rpc.MethodRevoke {
		token := firstMetadata(ctx, common.LinkTokenHeaderName)
		if r, ok := req.(*rpc.RevokeRequest); ok && token == "" {
			token = r.Token
		}
		if len(token) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		id, err := s.signer.ArtifactID(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = context.WithValue(ctx, artifactIDKey, id)
	}

	return handler(ctx, req)
}

// observeInterceptor records method, code and latency of every call.
func (s *GRPCServer) observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	code := status.Code(err)
	s.metrics.ObserveRequest("grpc", info.FullMethod, code.String(), elapsed.Seconds())
	s.logger.Debug(ctx, "call", "method", info.FullMethod, "code", code.String(), "duration", elapsed)
	return resp, err
}
