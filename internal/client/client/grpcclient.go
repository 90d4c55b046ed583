package client

import (
	"context"
	"fmt"

	"github.com/qrshare/qrshare/internal/common"
	"github.com/qrshare/qrshare/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// maxMessageBytes bounds both directions; downloads carry whole files.
const maxMessageBytes = 256 << 20

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc.ArtifactServiceClient
}

// withMetadata returns ctx with key set to value in the outgoing metadata,
// replacing any earlier value.
func withMetadata(ctx context.Context, key, value string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(key, value)

	return metadata.NewOutgoingContext(ctx, md)
}

func NewArtifactClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageBytes),
			grpc.MaxCallSendMsgSize(maxMessageBytes),
		),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewArtifactServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) Upload(ctx context.Context, req *rpc.UploadRequest) (*rpc.UploadResponse, error) {
	resp, err := s.client.Upload(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// Download prefers the link token so the server can refuse stale links
// before touching the store.
func (s *GRPCClient) Download(ctx context.Context, ref Ref, password string) (*rpc.DownloadResponse, error) {
	req := &rpc.DownloadRequest{Token: ref.Token}
	if req.Token == "" {
		req.ID = ref.ID
	}
	if password != "" {
		ctx = withMetadata(ctx, common.PasswordHeaderName, password)
	}

	resp, err := s.client.Download(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Stats(ctx context.Context, id string) (int64, error) {
	resp, err := s.client.Stats(ctx, &rpc.StatsRequest{ID: id})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.DownloadCount, nil
}

// Revoke needs the link token; an id alone is not proof of ownership.
func (s *GRPCClient) Revoke(ctx context.Context, ref Ref) error {
	if ref.Token == "" {
		return ErrUnauthorized
	}
	ctx = withMetadata(ctx, common.LinkTokenHeaderName, ref.Token)

	_, err := s.client.Revoke(ctx, &rpc.RevokeRequest{})
	if err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return ErrNotFound
	case codes.FailedPrecondition:
		return ErrExpired
	case codes.PermissionDenied:
		return ErrWrongPassword
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.ResourceExhausted:
		return ErrTooLarge
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
