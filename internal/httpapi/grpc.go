package httpapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"qala.org/internal/obs"
)

// GRPCHealth serves the standard gRPC health protocol backed by the same
// readiness probe as /readyz.
type GRPCHealth struct {
	healthpb.UnimplementedHealthServer

	probe ReadyProbe
}

func NewGRPCHealth(probe ReadyProbe) *GRPCHealth {
	return &GRPCHealth{probe: probe}
}

// Register attaches the health service to a gRPC server.
func (s *GRPCHealth) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, s)
}

// Check evaluates readiness for any requested service name.
func (s *GRPCHealth) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := s.probe.Check(ctx); err != nil {
		obs.SetReady(false)
		return &healthpb.HealthCheckResponse{
			Status: healthpb.HealthCheckResponse_NOT_SERVING,
		}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{
		Status: healthpb.HealthCheckResponse_SERVING,
	}, nil
}

// Watch is not supported; clients should poll Check.
func (s *GRPCHealth) Watch(_ *healthpb.HealthCheckRequest, _ healthpb.Health_WatchServer) error {
	return status.Error(codes.Unimplemented, "watch is not supported")
}
