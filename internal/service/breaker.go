// Package service exposes the admin/health surface of the circuit breaker.
package service

import (
	"FuseGate/internal/biz"
	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// BreakerService serves the JSON admin API: read-only metrics and health
// aggregation plus the manual override operations. The hot path
// (IsOpen/RecordSuccess/RecordFailure) is a library contract consumed
// in-process and is deliberately not exposed here.
type BreakerService struct {
	admin  *biz.AdminUsecase
	logger *log.Helper
}

// NewBreakerService creates a new BreakerService instance.
func NewBreakerService(admin *biz.AdminUsecase, logger log.Logger) *BreakerService {
	return &BreakerService{
		admin:  admin,
		logger: log.NewHelper(logger),
	}
}

// overrideRequest is the body of manual open/close operations.
type overrideRequest struct {
	Reason string `json:"reason"`
}

// stateReply is the body of the single-circuit state read.
type stateReply struct {
	Service string             `json:"service"`
	State   model.CircuitState `json:"state"`
}

// configReply renders the effective configuration with the recovery timeout
// in seconds, matching the shape accepted by updateConfiguration.
type configReply struct {
	FailureThreshold float64 `json:"failure_threshold"`
	MinimumRequests  int64   `json:"minimum_requests"`
	RecoveryTimeout  int64   `json:"recovery_timeout"`
	HalfOpenRequests int64   `json:"half_open_requests"`
	SuccessThreshold int64   `json:"success_threshold"`
}

// updateConfigReply lists the accepted override fields.
type updateConfigReply struct {
	Applied map[string]float64 `json:"applied"`
}

// RegisterRoutes mounts the admin API under /v1.
func (s *BreakerService) RegisterRoutes(srv *http.Server) {
	r := srv.Route("/v1")

	r.GET("/health", s.healthCheck)
	r.GET("/circuits", s.getAllMetrics)
	r.GET("/circuits/{service}", s.getState)
	r.GET("/circuits/{service}/metrics", s.getMetrics)
	r.POST("/circuits/{service}/open", s.openCircuit)
	r.POST("/circuits/{service}/close", s.closeCircuit)
	r.POST("/circuits/{service}/reset", s.resetMetrics)
	r.GET("/config", s.getConfiguration)
	r.PATCH("/config", s.updateConfiguration)
}

func (s *BreakerService) healthCheck(ctx http.Context) error {
	report, err := s.admin.HealthCheck(ctx)
	if err != nil {
		return storeError(err)
	}
	return ctx.Result(200, report)
}

func (s *BreakerService) getAllMetrics(ctx http.Context) error {
	all, err := s.admin.GetAllMetrics(ctx)
	if err != nil {
		return storeError(err)
	}
	return ctx.Result(200, all)
}

func (s *BreakerService) getState(ctx http.Context) error {
	service, err := serviceVar(ctx)
	if err != nil {
		return err
	}

	snapshot, err := s.admin.GetMetrics(ctx, service)
	if err != nil {
		return storeError(err)
	}

	return ctx.Result(200, stateReply{Service: service, State: snapshot.State})
}

func (s *BreakerService) getMetrics(ctx http.Context) error {
	service, err := serviceVar(ctx)
	if err != nil {
		return err
	}

	snapshot, err := s.admin.GetMetrics(ctx, service)
	if err != nil {
		return storeError(err)
	}

	return ctx.Result(200, snapshot)
}

func (s *BreakerService) openCircuit(ctx http.Context) error {
	service, err := serviceVar(ctx)
	if err != nil {
		return err
	}

	var req overrideRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest("INVALID_BODY", "request body must be JSON")
	}

	s.logger.Infow("manual open requested", "service", service, "reason", req.Reason)

	if err := s.admin.OpenCircuit(ctx, service, req.Reason); err != nil {
		return storeError(err)
	}

	return ctx.Result(200, stateReply{Service: service, State: model.StateOpen})
}

func (s *BreakerService) closeCircuit(ctx http.Context) error {
	service, err := serviceVar(ctx)
	if err != nil {
		return err
	}

	var req overrideRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest("INVALID_BODY", "request body must be JSON")
	}

	s.logger.Infow("manual close requested", "service", service, "reason", req.Reason)

	if err := s.admin.CloseCircuit(ctx, service, req.Reason); err != nil {
		return storeError(err)
	}

	return ctx.Result(200, stateReply{Service: service, State: model.StateClosed})
}

func (s *BreakerService) resetMetrics(ctx http.Context) error {
	service, err := serviceVar(ctx)
	if err != nil {
		return err
	}

	if err := s.admin.ResetMetrics(ctx, service); err != nil {
		return storeError(err)
	}

	snapshot, err := s.admin.GetMetrics(ctx, service)
	if err != nil {
		return storeError(err)
	}

	return ctx.Result(200, snapshot)
}

func (s *BreakerService) getConfiguration(ctx http.Context) error {
	cfg := s.admin.GetConfiguration(ctx)
	return ctx.Result(200, toConfigReply(cfg))
}

func (s *BreakerService) updateConfiguration(ctx http.Context) error {
	var partial map[string]interface{}
	if err := ctx.Bind(&partial); err != nil {
		return errors.BadRequest("INVALID_BODY", "request body must be a JSON object")
	}

	applied, err := s.admin.UpdateConfiguration(ctx, partial)
	if err != nil {
		return storeError(err)
	}

	return ctx.Result(200, updateConfigReply{Applied: applied})
}

// serviceVar extracts the service path variable.
func serviceVar(ctx http.Context) (string, error) {
	service := ctx.Vars().Get("service")
	if service == "" {
		return "", errors.BadRequest("SERVICE_REQUIRED", "service identifier is required")
	}
	return service, nil
}

// storeError maps shared-store failures to a 500 with a stable reason.
func storeError(err error) error {
	return errors.InternalServer("STORE_UNAVAILABLE", err.Error())
}

// toConfigReply converts the effective config to its wire shape.
func toConfigReply(cfg model.BreakerConfig) configReply {
	return configReply{
		FailureThreshold: cfg.FailureThresholdPct,
		MinimumRequests:  cfg.MinimumRequests,
		RecoveryTimeout:  int64(cfg.RecoveryTimeout.Seconds()),
		HalfOpenRequests: cfg.HalfOpenRequests,
		SuccessThreshold: cfg.SuccessThreshold,
	}
}
