// Package server exposes the watch daemon's gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PipelineService is the health service name that reflects the last run.
const PipelineService = "invoice-scanner.pipeline"

// Pinger is satisfied by the run journal.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	deps   map[string]Pinger
	every  time.Duration
	logger *slog.Logger
}

// NewHealthServer registers the standard health service. The overall status
// ("") is SERVING while the server runs; PipelineService follows
// MarkPipeline; every named dependency gets its own service entry that is
// refreshed by pinging it.
func NewHealthServer(logger *slog.Logger, deps map[string]Pinger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &HealthServer{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		deps:   deps,
		every:  15 * time.Second,
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(PipelineService, healthpb.HealthCheckResponse_SERVING)
	return s
}

// MarkPipeline records whether the most recent run could start at all.
func (s *HealthServer) MarkPipeline(ok bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(PipelineService, st)
}

// Serve blocks until ctx is done or the listener fails.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.checkDeps(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpc.Serve(lis)
	}()
	s.logger.Info("health.serving", "addr", lis.Addr().String())

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			<-errCh
			s.logger.Info("health.stopped")
			return nil
		case err := <-errCh:
			if errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			s.logger.Error("health.serve_failed", "error", err)
			return err
		case <-ticker.C:
			s.checkDeps(ctx)
		}
	}
}

// ListenAndServe listens on addr (":8081" style) and serves.
func (s *HealthServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("health.listen_failed", "addr", addr, "error", err)
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *HealthServer) checkDeps(ctx context.Context) {
	for name, dep := range s.deps {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := dep.Ping(pctx)
		cancel()
		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("health.dependency_down", "dependency", name, "error", err)
		}
		s.health.SetServingStatus(name, st)
	}
}
