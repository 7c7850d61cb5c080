//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/blueberrycoding/bbmp-launcher/internal/api/grpc/launcher"
	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/launcher"
	"github.com/blueberrycoding/bbmp-launcher/internal/version"
)

// Client wraps the launcher gRPC client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the launcher server.
	conn *grpc.ClientConn
	// api is the raw launcher client.
	api *api.Client

	// callTimeout is the default timeout for individual RPC calls. Zero means none.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the launcher server.
// Note: this uses insecure transport credentials; the server listens on loopback by default.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent("bbmp-launcher")),
	)
	if err != nil {
		return nil, fmt.Errorf("dial launcher server: %w", err)
	}

	return newClient(conn, opts...), nil
}

// NewFromConn wraps an existing connection. Closing the client closes conn.
func NewFromConn(conn *grpc.ClientConn, opts ...Option) *Client {
	return newClient(conn, opts...)
}

// newClient applies options to a client on conn.
func newClient(conn *grpc.ClientConn, opts ...Option) *Client {
	client := &Client{
		conn: conn,
		api:  api.NewClient(conn),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// DownloadLatest asks the server to cache the latest artifact.
func (c *Client) DownloadLatest(ctx context.Context) (*launcher.DownloadResult, error) {
	return call[launcher.DownloadResult](ctx, c, "download latest", c.api.DownloadLatest)
}

// DownloadFromURL asks the server to download an artifact URL.
func (c *Client) DownloadFromURL(ctx context.Context, rawURL string) (*launcher.DownloadResult, error) {
	return call[launcher.DownloadResult](ctx, c, "download from url",
		func(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
			return c.api.DownloadFromURL(ctx, rawURL, opts...)
		})
}

// CheckRuntime asks the server to look for a runtime.
func (c *Client) CheckRuntime(ctx context.Context) (*launcher.RuntimeCheck, error) {
	return call[launcher.RuntimeCheck](ctx, c, "check runtime", c.api.CheckRuntime)
}

// InstallRuntime asks the server to install the runtime.
func (c *Client) InstallRuntime(ctx context.Context) (*launcher.InstallResult, error) {
	return call[launcher.InstallResult](ctx, c, "install runtime", c.api.InstallRuntime)
}

// Cached lists the artifacts cached on the server.
func (c *Client) Cached(ctx context.Context) (*launcher.CachedResult, error) {
	return call[launcher.CachedResult](ctx, c, "cached", c.api.Cached)
}

// Launch asks the server to start the child.
func (c *Client) Launch(ctx context.Context, opts *launch.Options) (*launcher.LaunchResponse, error) {
	request, err := api.Encode(opts)
	if err != nil {
		return nil, err
	}

	return call[launcher.LaunchResponse](ctx, c, "launch",
		func(ctx context.Context, callOpts ...grpc.CallOption) (*structpb.Struct, error) {
			return c.api.Launch(ctx, request, callOpts...)
		})
}

// Stop asks the server to terminate the child.
func (c *Client) Stop(ctx context.Context) (*launcher.Ack, error) {
	return call[launcher.Ack](ctx, c, "stop", c.api.Stop)
}

// Status returns the server's supervisor state.
func (c *Client) Status(ctx context.Context) (*launcher.StatusResult, error) {
	return call[launcher.StatusResult](ctx, c, "status", c.api.Status)
}

// IsRunning reports whether the server has a running child.
func (c *Client) IsRunning(ctx context.Context) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.IsRunning(callCtx)
	if err != nil {
		return false, fmt.Errorf("is running: %w", err)
	}

	return response.GetValue(), nil
}

// Subscribe streams server events into handle until the stream ends or ctx is done.
// The call timeout does not apply to the stream.
func (c *Client) Subscribe(ctx context.Context, handle func(events.Event)) error {
	stream, err := c.api.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		message, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("receive event: %w", err)
		}

		var event events.Event
		if err = api.Decode(message, &event); err != nil {
			return err
		}

		handle(event)
	}
}

// call performs a unary call returning a Struct and decodes it into T.
func call[T any](
	ctx context.Context,
	c *Client,
	name string,
	rpc func(context.Context, ...grpc.CallOption) (*structpb.Struct, error),
) (*T, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := rpc(callCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	result := new(T)
	if err = api.Decode(response, result); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return result, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
