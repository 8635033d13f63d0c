// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Bootstrap is the root configuration of the FuseGate service.
type Bootstrap struct {
	Server  *Server
	Data    *Data
	Breaker *Breaker
	Log     *Log
}

// Server holds transport configuration.
type Server struct {
	Http *Server_HTTP
	Grpc *Server_GRPC
}

// Server_HTTP holds HTTP server configuration.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Server_GRPC holds gRPC server configuration.
type Server_GRPC struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data holds data layer configuration.
type Data struct {
	Redis    *Data_Redis
	Database *Data_Database
}

// Data_Redis holds Redis connection configuration.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Data_Database holds the optional MySQL configuration used for the
// circuit audit trail. An empty Source disables the audit database.
type Data_Database struct {
	Driver string
	Source string
}

// Breaker holds the default circuit breaker thresholds. These are the
// deployment-level defaults; they can be overridden at runtime through the
// admin API (the overrides live in Redis so all instances converge).
type Breaker struct {
	// FailureThreshold is the windowed failure rate (percent, 0-100]
	// at which a closed circuit opens.
	FailureThreshold float64
	// MinimumRequests is the minimum windowed request total before the
	// failure rate is evaluated at all.
	MinimumRequests int64
	// RecoveryTimeout is how long an open circuit waits before admitting
	// a half-open trial request.
	RecoveryTimeout time.Duration
	// HalfOpenRequests is the advisory trial budget while half-open.
	HalfOpenRequests int64
	// SuccessThreshold is the number of half-open successes required to
	// close the circuit.
	SuccessThreshold int64
}

// Log holds logging configuration.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with FUSEGATE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	// Enable environment variable support with FUSEGATE_ prefix
	v.SetEnvPrefix("FUSEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without FUSEGATE_ prefix) for compatibility
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "FUSEGATE_DATA_REDIS_ADDR")
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "FUSEGATE_DATA_DATABASE_SOURCE")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// If config file is specified but not found, return error
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
			Grpc: &Server_GRPC{
				Network: v.GetString("server.grpc.network"),
				Addr:    v.GetString("server.grpc.addr"),
				Timeout: v.GetDuration("server.grpc.timeout"),
			},
		},
		Data: &Data{
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
		},
		Breaker: &Breaker{
			FailureThreshold: v.GetFloat64("breaker.failure_threshold"),
			MinimumRequests:  v.GetInt64("breaker.minimum_requests"),
			RecoveryTimeout:  v.GetDuration("breaker.recovery_timeout"),
			HalfOpenRequests: v.GetInt64("breaker.half_open_requests"),
			SuccessThreshold: v.GetInt64("breaker.success_threshold"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("server.grpc.network", "tcp")
	v.SetDefault("server.grpc.addr", ":9000")
	v.SetDefault("server.grpc.timeout", 30*time.Second)

	// Data defaults
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is optional; without it the
	// audit trail degrades to structured logs only.

	// Breaker defaults
	v.SetDefault("breaker.failure_threshold", 50.0)
	v.SetDefault("breaker.minimum_requests", 20)
	v.SetDefault("breaker.recovery_timeout", 300*time.Second)
	v.SetDefault("breaker.half_open_requests", 10)
	v.SetDefault("breaker.success_threshold", 5)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all invalid fields.
func Validate(bc *Bootstrap) error {
	var invalid []string

	if bc.Data == nil || bc.Data.Redis == nil || bc.Data.Redis.Addr == "" {
		invalid = append(invalid, "data.redis.addr (REDIS_ADDR)")
	}

	if bc.Breaker == nil {
		invalid = append(invalid, "breaker")
	} else {
		if bc.Breaker.FailureThreshold <= 0 || bc.Breaker.FailureThreshold > 100 {
			invalid = append(invalid, "breaker.failure_threshold (must be in (0, 100])")
		}
		if bc.Breaker.MinimumRequests <= 0 {
			invalid = append(invalid, "breaker.minimum_requests (must be > 0)")
		}
		if bc.Breaker.RecoveryTimeout <= 0 {
			invalid = append(invalid, "breaker.recovery_timeout (must be > 0)")
		}
		if bc.Breaker.HalfOpenRequests <= 0 {
			invalid = append(invalid, "breaker.half_open_requests (must be > 0)")
		}
		if bc.Breaker.SuccessThreshold <= 0 {
			invalid = append(invalid, "breaker.success_threshold (must be > 0)")
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration fields: %s", strings.Join(invalid, ", "))
	}

	return nil
}
