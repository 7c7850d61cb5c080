package launcher

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/blueberrycoding/bbmp-launcher/internal/domain/launch"
	"github.com/blueberrycoding/bbmp-launcher/internal/events"
	"github.com/blueberrycoding/bbmp-launcher/internal/logger"
	"github.com/blueberrycoding/bbmp-launcher/internal/service/launcher"
)

// Service abstracts the boundary operations the transport layer depends on.
type Service interface {
	DownloadLatest(ctx context.Context) launcher.DownloadResult
	DownloadFromURL(ctx context.Context, rawURL string) launcher.DownloadResult
	CheckRuntime(ctx context.Context) launcher.RuntimeCheck
	InstallRuntime(ctx context.Context) launcher.InstallResult
	Cached(ctx context.Context) launcher.CachedResult
	Launch(ctx context.Context, opts *launch.Options) launcher.LaunchResponse
	Stop(ctx context.Context) launcher.Ack
	IsRunning() bool
	Status() launcher.StatusResult
	PickRuntimeExecutable(ctx context.Context) *string
	SetAlwaysOnTop(ctx context.Context, enabled bool) launcher.Ack
	Subscribe(ctx context.Context) <-chan events.Event
}

// Server implements the launcher gRPC API.
type Server struct {
	// service provides the launcher operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// DownloadLatest ensures the latest artifact is cached.
func (s *Server) DownloadLatest(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeResult(s.service.DownloadLatest(ctx))
}

// DownloadFromURL downloads an artifact from the requested URL.
func (s *Server) DownloadFromURL(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "url is required")
	}

	return encodeResult(s.service.DownloadFromURL(ctx, req.GetValue()))
}

// CheckRuntime looks for a runtime.
func (s *Server) CheckRuntime(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeResult(s.service.CheckRuntime(ctx))
}

// InstallRuntime installs the runtime.
func (s *Server) InstallRuntime(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeResult(s.service.InstallRuntime(ctx))
}

// Cached lists the artifacts in the data directory.
func (s *Server) Cached(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeResult(s.service.Cached(ctx))
}

// Launch starts the child with the options carried by the request.
func (s *Server) Launch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var opts launch.Options
	if err := Decode(req, &opts); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return encodeResult(s.service.Launch(ctx, &opts))
}

// Stop terminates the running child.
func (s *Server) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeResult(s.service.Stop(ctx))
}

// IsRunning reports whether a child is running.
func (s *Server) IsRunning(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.service.IsRunning()), nil
}

// Status returns the running flag and session snapshot.
func (s *Server) Status(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return encodeResult(s.service.Status())
}

// PickRuntimeExecutable returns the picked path, or a null value when canceled.
func (s *Server) PickRuntimeExecutable(ctx context.Context, _ *emptypb.Empty) (*structpb.Value, error) {
	picked := s.service.PickRuntimeExecutable(ctx)
	if picked == nil {
		return structpb.NewNullValue(), nil
	}

	return structpb.NewStringValue(*picked), nil
}

// SetAlwaysOnTop pins or unpins the window.
func (s *Server) SetAlwaysOnTop(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	return encodeResult(s.service.SetAlwaysOnTop(ctx, req.GetValue()))
}

// Subscribe streams events until the client goes away.
func (s *Server) Subscribe(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := logger.WithName(stream.Context(), "api")

	logger.Debugf(ctx, "Subscriber connected")

	for event := range s.service.Subscribe(ctx) {
		message, err := Encode(event)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}

		if err = stream.Send(message); err != nil {
			return err
		}
	}

	logger.Debugf(ctx, "Subscriber disconnected")

	return nil
}

// encodeResult converts a boundary result into a Struct response.
func encodeResult(v any) (*structpb.Struct, error) {
	message, err := Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode result")
	}

	return message, nil
}
