package launcher

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is the raw RPC client of the launcher service.
type Client struct {
	// cc carries the calls.
	cc grpc.ClientConnInterface
}

// NewClient creates a client on top of a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// DownloadLatest calls the DownloadLatest RPC.
func (c *Client) DownloadLatest(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "DownloadLatest", new(emptypb.Empty), opts...)
}

// DownloadFromURL calls the DownloadFromURL RPC.
func (c *Client) DownloadFromURL(ctx context.Context, rawURL string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "DownloadFromURL", wrapperspb.String(rawURL), opts...)
}

// CheckRuntime calls the CheckRuntime RPC.
func (c *Client) CheckRuntime(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "CheckRuntime", new(emptypb.Empty), opts...)
}

// InstallRuntime calls the InstallRuntime RPC.
func (c *Client) InstallRuntime(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "InstallRuntime", new(emptypb.Empty), opts...)
}

// Cached calls the Cached RPC.
func (c *Client) Cached(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Cached", new(emptypb.Empty), opts...)
}

// Launch calls the Launch RPC.
func (c *Client) Launch(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Launch", req, opts...)
}

// Stop calls the Stop RPC.
func (c *Client) Stop(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Stop", new(emptypb.Empty), opts...)
}

// IsRunning calls the IsRunning RPC.
func (c *Client) IsRunning(ctx context.Context, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, "IsRunning", new(emptypb.Empty), opts...)
}

// Status calls the Status RPC.
func (c *Client) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Status", new(emptypb.Empty), opts...)
}

// PickRuntimeExecutable calls the PickRuntimeExecutable RPC.
func (c *Client) PickRuntimeExecutable(ctx context.Context, opts ...grpc.CallOption) (*structpb.Value, error) {
	return invoke[structpb.Value](ctx, c.cc, "PickRuntimeExecutable", new(emptypb.Empty), opts...)
}

// SetAlwaysOnTop calls the SetAlwaysOnTop RPC.
func (c *Client) SetAlwaysOnTop(ctx context.Context, enabled bool, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "SetAlwaysOnTop", wrapperspb.Bool(enabled), opts...)
}

// Subscribe opens the server-streaming Subscribe RPC.
func (c *Client) Subscribe(
	ctx context.Context,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], fullMethod("Subscribe"), opts...)
	if err != nil {
		return nil, err
	}

	typed := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}

	if err = typed.SendMsg(new(emptypb.Empty)); err != nil {
		return nil, err
	}

	if err = typed.CloseSend(); err != nil {
		return nil, err
	}

	return typed, nil
}

// invoke performs a unary call and returns the decoded response.
func invoke[Res any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	req any,
	opts ...grpc.CallOption,
) (*Res, error) {
	out := new(Res)
	if err := cc.Invoke(ctx, fullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
