package service

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"hackohio/quizd/pkg/worker"
)

// MetricsSource reports worker channel counters.
type MetricsSource interface {
	Metrics() worker.Metrics
}

// WorkerServer adapts a worker.Invoker to the gRPC service.
type WorkerServer struct {
	inv     worker.Invoker
	metrics MetricsSource
	// Optional discovery data
	Features []string
	Metadata map[string]string
}

func NewWorkerServer(inv worker.Invoker, metrics MetricsSource, features []string, metadata map[string]string) *WorkerServer {
	return &WorkerServer{inv: inv, metrics: metrics, Features: features, Metadata: metadata}
}

// Invoke bridges {action, payload} to the invocation layer and returns the
// worker's JSON document unvalidated.
func (s *WorkerServer) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	fields := req.GetFields()
	action := fields["action"].GetStringValue()
	if action == "" {
		return nil, status.Error(codes.InvalidArgument, "action is required")
	}
	payload := worker.Payload(fields["payload"].GetStructValue().AsMap())

	raw, err := s.inv.Invoke(ctx, action, payload)
	if err != nil {
		return nil, status.Error(codeFor(err), worker.Summary(err))
	}
	out := &structpb.Value{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.DataLoss, "worker result is not representable: %v", err)
	}
	return out, nil
}

// Discover returns static capabilities plus channel counters.
func (s *WorkerServer) Discover(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	features := make([]any, 0, len(s.Features))
	for _, f := range s.Features {
		features = append(features, f)
	}
	metadata := make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		metadata[k] = v
	}
	out := map[string]any{"features": features, "metadata": metadata}
	if s.metrics != nil {
		m := s.metrics.Metrics()
		out["metrics"] = map[string]any{
			"active":              float64(m.Active),
			"launches":            float64(m.Launches),
			"launch_faults":       float64(m.LaunchFaults),
			"completed":           float64(m.Completed),
			"success":             float64(m.Success),
			"duration_count":      float64(m.DurationCount),
			"duration_sum_micros": float64(m.DurationSumMicros),
		}
	}
	return structpb.NewStruct(out)
}

func codeFor(err error) codes.Code {
	var (
		exitErr *worker.ProcessExitError
		decErr  *worker.DecodeError
	)
	switch {
	case errors.Is(err, worker.ErrNoExecutableFound):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.As(err, &exitErr):
		return codes.Internal
	case errors.As(err, &decErr):
		return codes.DataLoss
	default:
		return codes.Unknown
	}
}
