package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service reported by the gRPC health endpoint in
// addition to the overall ("") status.
const HealthServiceName = "wsbridge.Workspace"

const healthProbeInterval = 10 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func registerHealthService(s *grpc.Server) *health.Server {
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// updateHealth mirrors database reachability into the health server.
func updateHealth(ctx context.Context, hs *health.Server, db pinger) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := db.Ping(ctx); err != nil {
		slog.Warn("health probe failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(HealthServiceName, status)
	return status
}

func startGRPCHealth(addr string, db pinger) (func(), string, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen grpc: %w", err)
	}
	grpcSrv := grpc.NewServer()
	hs := registerHealthService(grpcSrv)

	ctx, cancel := context.WithCancel(context.Background())
	updateHealth(ctx, hs, db)
	go func() {
		ticker := time.NewTicker(healthProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, probeCancel := context.WithTimeout(ctx, 2*time.Second)
				updateHealth(probeCtx, hs, db)
				probeCancel()
			}
		}
	}()
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("grpc serve failed", "error", err)
		}
	}()

	stop := func() {
		cancel()
		hs.Shutdown()
		grpcSrv.GracefulStop()
	}
	return stop, lis.Addr().String(), nil
}
