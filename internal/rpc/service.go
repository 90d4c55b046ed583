package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified service name declared in SourceFile.
const ServiceName = "qrshare.ArtifactService"

// Full method names, as seen by interceptors.
const (
	MethodUpload   = "/" + ServiceName + "/Upload"
	MethodDownload = "/" + ServiceName + "/Download"
	MethodStats    = "/" + ServiceName + "/Stats"
	MethodRevoke   = "/" + ServiceName + "/Revoke"
	MethodPing     = "/" + ServiceName + "/Ping"
)

// ArtifactServiceServer is implemented by the server adapter.
type ArtifactServiceServer interface {
	Upload(context.Context, *UploadRequest) (*UploadResponse, error)
	Download(context.Context, *DownloadRequest) (*DownloadResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
	Revoke(context.Context, *RevokeRequest) (*RevokeResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// UnimplementedArtifactServiceServer answers every method with
// codes.Unimplemented. Embed it to stay forward compatible.
type UnimplementedArtifactServiceServer struct{}

func (UnimplementedArtifactServiceServer) Upload(context.Context, *UploadRequest) (*UploadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Upload not implemented")
}
func (UnimplementedArtifactServiceServer) Download(context.Context, *DownloadRequest) (*DownloadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Download not implemented")
}
func (UnimplementedArtifactServiceServer) Stats(context.Context, *StatsRequest) (*StatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Stats not implemented")
}
func (UnimplementedArtifactServiceServer) Revoke(context.Context, *RevokeRequest) (*RevokeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Revoke not implemented")
}
func (UnimplementedArtifactServiceServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func RegisterArtifactServiceServer(s grpc.ServiceRegistrar, srv ArtifactServiceServer) {
	s.RegisterService(&ArtifactServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodDesc's handler shape.
// The request is decoded from its protobuf form before interceptors run,
// so they see the Go struct; the response is encoded on the way out.
func unaryHandler[Req any, Resp any](fullMethod string, call func(ArtifactServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		w := any(in).(wire)
		m := newMessage(w)
		if err := dec(m); err != nil {
			return nil, err
		}
		w.unmarshalFrom(m)

		handler := func(ctx context.Context, req any) (any, error) {
			resp, err := call(srv.(ArtifactServiceServer), ctx, req.(*Req))
			if err != nil {
				return nil, err
			}
			return resp, nil
		}

		var (
			out any
			err error
		)
		if interceptor == nil {
			out, err = handler(ctx, in)
		} else {
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			out, err = interceptor(ctx, in, info, handler)
		}
		if err != nil {
			return nil, err
		}

		resp, _ := out.(*Resp)
		if resp == nil {
			return nil, status.Errorf(codes.Internal, "%s returned no response", fullMethod)
		}
		return encode(any(resp).(wire)), nil
	}
}

var ArtifactServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ArtifactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Upload", Handler: unaryHandler(MethodUpload, ArtifactServiceServer.Upload)},
		{MethodName: "Download", Handler: unaryHandler(MethodDownload, ArtifactServiceServer.Download)},
		{MethodName: "Stats", Handler: unaryHandler(MethodStats, ArtifactServiceServer.Stats)},
		{MethodName: "Revoke", Handler: unaryHandler(MethodRevoke, ArtifactServiceServer.Revoke)},
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, ArtifactServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: SourceFile,
}

// ArtifactServiceClient is the client API for ArtifactService.
type ArtifactServiceClient interface {
	Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*UploadResponse, error)
	Download(ctx context.Context, in *DownloadRequest, opts ...grpc.CallOption) (*DownloadResponse, error)
	Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error)
	Revoke(ctx context.Context, in *RevokeRequest, opts ...grpc.CallOption) (*RevokeResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type artifactServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewArtifactServiceClient(cc grpc.ClientConnInterface) ArtifactServiceClient {
	return &artifactServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in wire, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	w := any(out).(wire)
	reply := newMessage(w)
	if err := cc.Invoke(ctx, method, encode(in), reply, opts...); err != nil {
		return nil, err
	}
	w.unmarshalFrom(reply)
	return out, nil
}

func (c *artifactServiceClient) Upload(ctx context.Context, in *UploadRequest, opts ...grpc.CallOption) (*UploadResponse, error) {
	return invoke[UploadResponse](ctx, c.cc, MethodUpload, in, opts)
}

func (c *artifactServiceClient) Download(ctx context.Context, in *DownloadRequest, opts ...grpc.CallOption) (*DownloadResponse, error) {
	return invoke[DownloadResponse](ctx, c.cc, MethodDownload, in, opts)
}

func (c *artifactServiceClient) Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, MethodStats, in, opts)
}

func (c *artifactServiceClient) Revoke(ctx context.Context, in *RevokeRequest, opts ...grpc.CallOption) (*RevokeResponse, error) {
	return invoke[RevokeResponse](ctx, c.cc, MethodRevoke, in, opts)
}

func (c *artifactServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}
