package httpapi

import (
	"context"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func TestGRPCHealthCheckServing(t *testing.T) {
	s := NewGRPCHealth(ReadyProbe{})
	resp, err := s.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.Status)
	}
}

func TestGRPCHealthWatchUnimplemented(t *testing.T) {
	s := NewGRPCHealth(ReadyProbe{})
	err := s.Watch(&healthpb.HealthCheckRequest{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := status.FromError(err); !ok {
		t.Fatalf("expected gRPC status error, got %v", err)
	}
}
