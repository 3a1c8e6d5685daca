package grpc

import (
	"context"

	"github.com/rbroggi/gatherly/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the service name reported by the health endpoint besides the empty (whole server) one.
const ServiceName = "gatherly"

// HealthServiceArgs are the mandatory args to instantiate the HealthService.
type HealthServiceArgs struct {
	// Stores are the backing stores that must be reachable for the server to be serving.
	Stores []ports.Pinger
}

// NewHealthService creates a new HealthService
func NewHealthService(args HealthServiceArgs) *HealthService {
	return &HealthService{stores: args.Stores}
}

// HealthService implements the standard gRPC health checking protocol on top of the store pings.
type HealthService struct {
	healthpb.UnimplementedHealthServer
	stores []ports.Pinger
}

// Check is the health endpoint for the server
func (h *HealthService) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	for _, store := range h.stores {
		if err := store.Ping(ctx); err != nil {
			log.WithError(err).Warn("health check failed")
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
