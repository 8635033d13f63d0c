package biz

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"FuseGate/internal/conf"
	"FuseGate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Recognized runtime override fields. recovery_timeout is expressed in
// seconds on the wire and in the store.
const (
	cfgFieldFailureThreshold = "failure_threshold"
	cfgFieldMinimumRequests  = "minimum_requests"
	cfgFieldRecoveryTimeout  = "recovery_timeout"
	cfgFieldHalfOpenRequests = "half_open_requests"
	cfgFieldSuccessThreshold = "success_threshold"
)

// configCacheTTL bounds how stale the in-process view of the shared config
// can be. The decision engine reads the config on every call, so this keeps
// the hot path off Redis without letting instances diverge for long.
const configCacheTTL = 2 * time.Second

const configCacheKey = "effective"

// ConfigUsecase merges the deployment defaults with the shared runtime
// overrides and validates partial updates field by field.
type ConfigUsecase struct {
	defaults model.BreakerConfig
	repo     ConfigRepo
	cache    *expirable.LRU[string, model.BreakerConfig]
	logger   *log.Helper
}

// NewConfigUsecase creates a new config use case seeded with the
// deployment-level defaults.
func NewConfigUsecase(c *conf.Breaker, repo ConfigRepo, logger log.Logger) *ConfigUsecase {
	defaults := model.BreakerConfig{
		FailureThresholdPct: c.FailureThreshold,
		MinimumRequests:     c.MinimumRequests,
		RecoveryTimeout:     c.RecoveryTimeout,
		HalfOpenRequests:    c.HalfOpenRequests,
		SuccessThreshold:    c.SuccessThreshold,
	}

	return &ConfigUsecase{
		defaults: defaults,
		repo:     repo,
		cache:    expirable.NewLRU[string, model.BreakerConfig](1, nil, configCacheTTL),
		logger:   log.NewHelper(logger),
	}
}

// Get returns the effective configuration. Override store failures degrade
// to the deployment defaults with a warning; the breaker must keep deciding
// even when the config hash is unreadable.
func (uc *ConfigUsecase) Get(ctx context.Context) model.BreakerConfig {
	if cached, ok := uc.cache.Get(configCacheKey); ok {
		return cached
	}

	effective := uc.defaults

	overrides, err := uc.repo.GetOverrides(ctx)
	if err != nil {
		uc.logger.Warnf("failed to load config overrides: %v (using defaults)", err)
		return effective
	}

	for field, raw := range overrides {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			uc.logger.Warnw("ignoring malformed config override",
				"field", field,
				"value", raw)
			continue
		}
		applyField(&effective, field, value)
	}

	uc.cache.Add(configCacheKey, effective)

	return effective
}

// Update applies a partial configuration update. Unknown, non-numeric, and
// non-positive fields are silently skipped (with a warning log), valid
// fields overwrite in place. Returns the accepted fields and their values.
func (uc *ConfigUsecase) Update(ctx context.Context, partial map[string]interface{}) (map[string]float64, error) {
	applied := make(map[string]float64, len(partial))

	for field, raw := range partial {
		value, ok := toFloat(raw)
		if !ok {
			uc.logger.Warnw("ignoring non-numeric config field",
				"field", field)
			continue
		}

		if !validField(field, value) {
			uc.logger.Warnw("ignoring invalid config field",
				"field", field,
				"value", value)
			continue
		}

		if err := uc.repo.SetOverride(ctx, field, value); err != nil {
			return applied, err
		}

		applied[field] = value
	}

	if len(applied) > 0 {
		uc.cache.Purge()
		uc.logger.Infow("runtime configuration updated", "fields", applied)
	}

	return applied, nil
}

// applyField overlays one override field onto the effective config.
func applyField(cfg *model.BreakerConfig, field string, value float64) {
	switch field {
	case cfgFieldFailureThreshold:
		cfg.FailureThresholdPct = value
	case cfgFieldMinimumRequests:
		cfg.MinimumRequests = int64(value)
	case cfgFieldRecoveryTimeout:
		cfg.RecoveryTimeout = time.Duration(value * float64(time.Second))
	case cfgFieldHalfOpenRequests:
		cfg.HalfOpenRequests = int64(value)
	case cfgFieldSuccessThreshold:
		cfg.SuccessThreshold = int64(value)
	}
}

// validField reports whether the field is recognized and its value in range.
func validField(field string, value float64) bool {
	switch field {
	case cfgFieldFailureThreshold:
		return value > 0 && value <= 100
	case cfgFieldMinimumRequests, cfgFieldRecoveryTimeout,
		cfgFieldHalfOpenRequests, cfgFieldSuccessThreshold:
		return value > 0
	}
	return false
}

// toFloat coerces the JSON-decoded value to a float64.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
