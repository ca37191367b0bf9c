package service

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer builds a gRPC server with the worker service, the standard
// health service and reflection registered.
func NewGRPCServer(impl WorkerServiceServer, logger *slog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(NewLoggingInterceptor(logger).Unary))
	RegisterWorkerServiceServer(s, impl)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(WorkerServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	// Enable server reflection for grpcurl and other tools
	reflection.Register(s)
	return s
}
