package client

import (
	"context"

	"github.com/qrshare/qrshare/internal/rpc"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Upload(ctx context.Context, req *rpc.UploadRequest) (*rpc.UploadResponse, error)
	Download(ctx context.Context, ref Ref, password string) (*rpc.DownloadResponse, error)
	Stats(ctx context.Context, id string) (int64, error)
	Revoke(ctx context.Context, ref Ref) error
}
