package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestNewBootstrap_Defaults(t *testing.T) {
	// Empty path: defaults only, no config file needed.
	bc, err := NewBootstrap("")
	require.NoError(t, err)
	require.NotNil(t, bc)

	assert.Equal(t, ":8080", bc.Server.Http.Addr)
	assert.Equal(t, "tcp", bc.Server.Http.Network)
	assert.Equal(t, 30*time.Second, bc.Server.Http.Timeout)

	assert.Equal(t, ":9000", bc.Server.Grpc.Addr)

	assert.Equal(t, "127.0.0.1:6379", bc.Data.Redis.Addr)
	assert.Equal(t, 200*time.Millisecond, bc.Data.Redis.ReadTimeout)
	assert.Equal(t, "mysql", bc.Data.Database.Driver)
	assert.Empty(t, bc.Data.Database.Source)

	assert.Equal(t, 50.0, bc.Breaker.FailureThreshold)
	assert.Equal(t, int64(20), bc.Breaker.MinimumRequests)
	assert.Equal(t, 300*time.Second, bc.Breaker.RecoveryTimeout)
	assert.Equal(t, int64(10), bc.Breaker.HalfOpenRequests)
	assert.Equal(t, int64(5), bc.Breaker.SuccessThreshold)

	assert.Equal(t, "info", bc.Log.Level)
	assert.Equal(t, "json", bc.Log.Format)
}

func TestNewBootstrap_FromFile(t *testing.T) {
	configPath := writeConfig(t, `server:
  http:
    addr: :9090
data:
  redis:
    addr: redis.internal:6379
breaker:
  failure_threshold: 75
  recovery_timeout: 60s
log:
  level: debug
  format: console
`)

	bc, err := NewBootstrap(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9090", bc.Server.Http.Addr)
	assert.Equal(t, "redis.internal:6379", bc.Data.Redis.Addr)
	assert.Equal(t, 75.0, bc.Breaker.FailureThreshold)
	assert.Equal(t, 60*time.Second, bc.Breaker.RecoveryTimeout)
	// Defaults still apply to untouched fields.
	assert.Equal(t, int64(20), bc.Breaker.MinimumRequests)
	assert.Equal(t, "debug", bc.Log.Level)
}

func TestNewBootstrap_EnvOverride(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.env:6379")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/fusegate")

	bc, err := NewBootstrap("")
	require.NoError(t, err)

	assert.Equal(t, "redis.env:6379", bc.Data.Redis.Addr)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/fusegate", bc.Data.Database.Source)
}

func TestNewBootstrap_MissingFile(t *testing.T) {
	_, err := NewBootstrap("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestNewBootstrap_InvalidBreakerConfig(t *testing.T) {
	configPath := writeConfig(t, `breaker:
  failure_threshold: 150
`)

	_, err := NewBootstrap(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failure_threshold")
}

func TestValidate(t *testing.T) {
	valid := &Bootstrap{
		Data: &Data{Redis: &Data_Redis{Addr: "127.0.0.1:6379"}},
		Breaker: &Breaker{
			FailureThreshold: 50,
			MinimumRequests:  20,
			RecoveryTimeout:  300 * time.Second,
			HalfOpenRequests: 10,
			SuccessThreshold: 5,
		},
	}
	assert.NoError(t, Validate(valid))

	missingRedis := &Bootstrap{
		Data:    &Data{Redis: &Data_Redis{}},
		Breaker: valid.Breaker,
	}
	assert.Error(t, Validate(missingRedis))

	badThreshold := &Bootstrap{
		Data: valid.Data,
		Breaker: &Breaker{
			FailureThreshold: 0,
			MinimumRequests:  20,
			RecoveryTimeout:  300 * time.Second,
			HalfOpenRequests: 10,
			SuccessThreshold: 5,
		},
	}
	assert.Error(t, Validate(badThreshold))
}
