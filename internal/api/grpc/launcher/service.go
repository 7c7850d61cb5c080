package launcher

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bbmp.launcher.v1.Launcher"

// Handler is the RPC surface served under ServiceName.
type Handler interface {
	DownloadLatest(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	DownloadFromURL(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	CheckRuntime(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	InstallRuntime(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Cached(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Launch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Stop(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	IsRunning(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BoolValue, error)
	Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	PickRuntimeExecutable(ctx context.Context, req *emptypb.Empty) (*structpb.Value, error)
	SetAlwaysOnTop(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error)
	Subscribe(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// serviceDesc describes the launcher service for grpc.ServiceRegistrar.
//
//nolint:gochecknoglobals // Registered once, like generated descriptors.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		unary("DownloadLatest", Handler.DownloadLatest),
		unary("DownloadFromURL", Handler.DownloadFromURL),
		unary("CheckRuntime", Handler.CheckRuntime),
		unary("InstallRuntime", Handler.InstallRuntime),
		unary("Cached", Handler.Cached),
		unary("Launch", Handler.Launch),
		unary("Stop", Handler.Stop),
		unary("IsRunning", Handler.IsRunning),
		unary("Status", Handler.Status),
		unary("PickRuntimeExecutable", Handler.PickRuntimeExecutable),
		unary("SetAlwaysOnTop", Handler.SetAlwaysOnTop),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "bbmp/launcher/v1/launcher.proto",
}

// Register attaches the handler to a gRPC server.
func Register(registrar grpc.ServiceRegistrar, handler Handler) {
	registrar.RegisterService(&serviceDesc, handler)
}

// fullMethod returns the "/service/method" path of an RPC.
func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds a method descriptor that decodes Req, runs interceptors and calls the handler.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Res proto.Message](
	name string,
	call func(Handler, context.Context, PReq) (Res, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(
			srv any,
			ctx context.Context,
			dec func(any) error,
			interceptor grpc.UnaryServerInterceptor,
		) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}

			handler, _ := srv.(Handler)
			if interceptor == nil {
				return call(handler, ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}

			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				typed, _ := req.(PReq)

				return call(handler, ctx, typed)
			})
		},
	}
}

// subscribeHandler reads the empty request and hands the typed stream to the handler.
func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	handler, _ := srv.(Handler)

	return handler.Subscribe(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
