package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func start(t *testing.T, s *HealthServer) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("health server did not stop")
		}
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func status(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	var st healthpb.HealthCheckResponse_ServingStatus
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return false
		}
		st = resp.GetStatus()
		return true
	}, 5*time.Second, 20*time.Millisecond)
	return st
}

func TestHealthServing(t *testing.T) {
	s := NewHealthServer(nil, nil)
	c := start(t, s)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, PipelineService))

	s.MarkPipeline(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, c, PipelineService))
	s.MarkPipeline(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, PipelineService))
}

func TestHealthDependencies(t *testing.T) {
	s := NewHealthServer(nil, map[string]Pinger{
		"journal": pingFunc(func(context.Context) error { return nil }),
		"broken":  pingFunc(func(context.Context) error { return errors.New("down") }),
	})
	c := start(t, s)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, c, "journal"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, c, "broken"))
}
