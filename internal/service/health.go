package service

import (
	"context"

	"FuseGate/internal/biz"
	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// HealthService exposes the aggregated circuit health over the standard gRPC
// health protocol so load balancers and orchestrators can probe it directly.
// SERVING maps to healthy or degraded; NOT_SERVING means more than half of
// the tracked circuits are open.
type HealthService struct {
	grpc_health_v1.UnimplementedHealthServer

	admin  *biz.AdminUsecase
	logger *log.Helper
}

// NewHealthService creates a new HealthService instance.
func NewHealthService(admin *biz.AdminUsecase, logger log.Logger) *HealthService {
	return &HealthService{
		admin:  admin,
		logger: log.NewHelper(logger),
	}
}

// Check implements grpc_health_v1.HealthServer.
func (s *HealthService) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	report, err := s.admin.HealthCheck(ctx)
	if err != nil {
		s.logger.Errorw("health aggregation failed", "error", err)
		return nil, status.Error(codes.Unavailable, "health aggregation failed")
	}

	st := grpc_health_v1.HealthCheckResponse_SERVING
	if report.Status == model.HealthUnhealthy {
		st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}

	return &grpc_health_v1.HealthCheckResponse{Status: st}, nil
}
