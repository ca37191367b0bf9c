package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service is described by hand over well-known types, so no generated
// code is needed:
//
//	service WorkerService {
//	  rpc Invoke(google.protobuf.Struct) returns (google.protobuf.Value);
//	  rpc Discover(google.protobuf.Empty) returns (google.protobuf.Struct);
//	}
const (
	WorkerServiceName           = "quizd.worker.v1.WorkerService"
	WorkerServiceInvokeMethod   = "/" + WorkerServiceName + "/Invoke"
	WorkerServiceDiscoverMethod = "/" + WorkerServiceName + "/Discover"
)

// WorkerServiceServer is the server API for WorkerService.
type WorkerServiceServer interface {
	Invoke(context.Context, *structpb.Struct) (*structpb.Value, error)
	Discover(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterWorkerServiceServer(s grpc.ServiceRegistrar, srv WorkerServiceServer) {
	s.RegisterService(&workerServiceDesc, srv)
}

var workerServiceDesc = grpc.ServiceDesc{
	ServiceName: WorkerServiceName,
	HandlerType: (*WorkerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: invokeHandler},
		{MethodName: "Discover", Handler: discoverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quizd/worker/v1/worker.proto",
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).Invoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WorkerServiceInvokeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func discoverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(WorkerServiceServer).Discover(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WorkerServiceDiscoverMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(WorkerServiceServer).Discover(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// WorkerServiceClient is a thin client for WorkerService.
type WorkerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewWorkerServiceClient(cc grpc.ClientConnInterface) *WorkerServiceClient {
	return &WorkerServiceClient{cc: cc}
}

// Invoke runs action with payload on the remote worker layer.
func (c *WorkerServiceClient) Invoke(ctx context.Context, action string, payload map[string]any, opts ...grpc.CallOption) (*structpb.Value, error) {
	in, err := structpb.NewStruct(map[string]any{"action": action, "payload": payload})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, WorkerServiceInvokeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *WorkerServiceClient) Discover(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WorkerServiceDiscoverMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
