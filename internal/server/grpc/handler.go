package grpc

import (
	"context"
	"errors"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/rpc"
	"github.com/qrshare/qrshare/internal/server/artifacts"
	"github.com/qrshare/qrshare/internal/server/links"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Upload(ctx context.Context, req *rpc.UploadRequest) (*rpc.UploadResponse, error) {
	if s.opts.MaxUploadBytes > 0 && int64(len(req.Data)) > s.opts.MaxUploadBytes {
		return nil, status.Error(codes.ResourceExhausted, "file too large")
	}

	receipt, err := s.store.Upload(ctx, artifacts.UploadInput{
		Data:         req.Data,
		OriginalName: req.Filename,
		ContentType:  req.ContentType,
		Password:     req.Password,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	token, err := s.signer.Token(receipt.ID, receipt.ExpiresAt)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Uploaded", "id", receipt.ID, "bytes", len(req.Data))
	return &rpc.UploadResponse{
		ID:        receipt.ID,
		Link:      links.URL(s.opts.BaseURL, token),
		Key:       receipt.KeyHandle,
		ExpiresAt: receipt.ExpiresAt,
	}, nil
}

func (s *GRPCServer) Download(ctx context.Context, req *rpc.DownloadRequest) (*rpc.DownloadResponse, error) {
	id := req.ID
	if req.Token != "" {
		var err error
		if id, err = s.signer.ArtifactID(req.Token); err != nil {
			return nil, s.toStatus(ctx, err)
		}
	}
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id or token required")
	}

	password := req.Password
	if password == "" {
		password = firstMetadata(ctx, common.PasswordHeaderName)
	}

	d, err := s.store.Retrieve(ctx, id, password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &rpc.DownloadResponse{
		Filename:      d.Artifact.OriginalName,
		ContentType:   d.Artifact.ContentType,
		Data:          d.Plaintext,
		DownloadCount: d.Count,
	}, nil
}

func (s *GRPCServer) Stats(ctx context.Context, req *rpc.StatsRequest) (*rpc.StatsResponse, error) {
	n, err := s.store.DownloadCount(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.StatsResponse{ID: req.ID, DownloadCount: n}, nil
}

// Revoke runs behind linkTokenInterceptor, which resolves the artifact id.
func (s *GRPCServer) Revoke(ctx context.Context, req *rpc.RevokeRequest) (*rpc.RevokeResponse, error) {
	id, ok := ctx.Value(artifactIDKey).(string)
	if !ok || id == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	if err := s.store.Revoke(ctx, id); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Revoked", "id", id)
	return &rpc.RevokeResponse{ID: id}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}

// toStatus maps core errors to status codes without revealing whether an
// id exists or needs a password.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.NotFound, "file not found")
	case errors.Is(err, common.ErrExpired), errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.FailedPrecondition, "link expired")
	case errors.Is(err, common.ErrDenied), errors.Is(err, common.ErrCorrupt):
		return status.Error(codes.PermissionDenied, "wrong password")
	case errors.Is(err, common.ErrorInvalidInput):
		return status.Error(codes.InvalidArgument, "invalid request")
	default:
		s.logger.Error(ctx, err.Error())
		return status.Error(codes.Internal, "internal error")
	}
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}
