package service

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"hackohio/quizd/pkg/worker"
	"hackohio/quizd/pkg/worker/workertest"
)

type fixedMetrics worker.Metrics

func (m fixedMetrics) Metrics() worker.Metrics { return worker.Metrics(m) }

func dial(t *testing.T, impl WorkerServiceServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(impl, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestInvoke(t *testing.T) {
	inv := workertest.NewInvoker(workertest.Reply{Raw: `{"questions":[{"prompt":"Q1","options":["A","B"],"answer_index":0}]}`})
	client := NewWorkerServiceClient(dial(t, NewWorkerServer(inv, nil, nil, nil)))

	got, err := client.Invoke(context.Background(), "generate_quiz", map[string]any{"topic": "Tech Trends", "count": 5})
	require.NoError(t, err)
	qs := got.GetStructValue().GetFields()["questions"].GetListValue().GetValues()
	require.Len(t, qs, 1)
	assert.Equal(t, "Q1", qs[0].GetStructValue().GetFields()["prompt"].GetStringValue())

	action, payload := inv.Last()
	assert.Equal(t, "generate_quiz", action)
	assert.Equal(t, worker.Payload{"topic": "Tech Trends", "count": 5.0}, payload)
}

func TestInvoke_RequiresAction(t *testing.T) {
	client := NewWorkerServiceClient(dial(t, NewWorkerServer(workertest.NewInvoker(), nil, nil, nil)))
	_, err := client.Invoke(context.Background(), "", nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestInvoke_ErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{&worker.NoExecutableFoundError{Tried: []string{"python"}}, codes.Unavailable},
		{&worker.ProcessExitError{ExitCode: 2, Stderr: "Unknown action"}, codes.Internal},
		{&worker.DecodeError{Stdout: "oops"}, codes.DataLoss},
		{&worker.AbortError{Cause: context.DeadlineExceeded}, codes.DeadlineExceeded},
	}
	for _, tt := range tests {
		client := NewWorkerServiceClient(dial(t, NewWorkerServer(workertest.NewInvoker(workertest.Reply{Err: tt.err}), nil, nil, nil)))
		_, err := client.Invoke(context.Background(), "generate_quiz", nil)
		st, _ := status.FromError(err)
		assert.Equal(t, tt.code, st.Code(), tt.err.Error())
		assert.Equal(t, worker.Summary(tt.err), st.Message())
	}
}

func TestDiscover(t *testing.T) {
	impl := NewWorkerServer(workertest.NewInvoker(), fixedMetrics{Launches: 3, Success: 2}, []string{"generate_quiz"}, map[string]string{"impl": "exec"})
	client := NewWorkerServiceClient(dial(t, impl))

	got, err := client.Discover(context.Background())
	require.NoError(t, err)
	m := got.AsMap()
	assert.Equal(t, []any{"generate_quiz"}, m["features"])
	assert.Equal(t, map[string]any{"impl": "exec"}, m["metadata"])
	assert.Equal(t, 3.0, m["metrics"].(map[string]any)["launches"])
}

func TestHealthService(t *testing.T) {
	conn := dial(t, NewWorkerServer(workertest.NewInvoker(), nil, nil, nil))
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: WorkerServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
