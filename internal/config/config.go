// Package config provides configuration loading for the lifecycled daemon.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables, with sensible defaults for everything.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete lifecycled configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Engine    EngineConfig    `koanf:"engine"`
	NATS      NATSConfig      `koanf:"nats"`
	History   HistoryConfig   `koanf:"history"`
	Watch     WatchConfig     `koanf:"watch"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string          `koanf:"host"`
	Port            int             `koanf:"port"`
	ShutdownTimeout Duration        `koanf:"shutdown_timeout"`
	RateLimit       RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig holds per-client rate limiting for mutating endpoints.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// EngineConfig holds lifecycle engine configuration.
//
// GroupOrder lists group names in start order; stop reverses it. When
// empty, the engine falls back to its built-in default.
type EngineConfig struct {
	GroupOrder []string `koanf:"group_order"`
	Parallel   bool     `koanf:"parallel"`
}

// NATSConfig holds event publishing configuration.
type NATSConfig struct {
	Enabled       bool     `koanf:"enabled"`
	URL           string   `koanf:"url"`
	Name          string   `koanf:"name"`
	User          string   `koanf:"user"`
	Password      Secret   `koanf:"password"`
	MaxReconnects int      `koanf:"max_reconnects"`
	ReconnectWait Duration `koanf:"reconnect_wait"`
	SubjectPrefix string   `koanf:"subject_prefix"`
}

// HistoryConfig holds the pass history store configuration.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// WatchConfig holds config file watching configuration.
type WatchConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Debounce Duration `koanf:"debounce"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"`
}

// LogConfig holds the subset of logging configuration exposed in the
// daemon config file. The logging package owns the full set.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load loads configuration from environment variables with defaults.
//
// Environment variables:
//   - LIFECYCLED_SERVER_HOST: HTTP bind address (default: 127.0.0.1)
//   - LIFECYCLED_SERVER_PORT: HTTP server port (default: 9600)
//   - LIFECYCLED_SERVER_SHUTDOWN_TIMEOUT: Graceful shutdown timeout (default: 10s)
//   - LIFECYCLED_ENGINE_PARALLEL: Fan out hooks within each group (default: false)
//   - LIFECYCLED_NATS_ENABLED: Publish lifecycle events to NATS (default: false)
//   - LIFECYCLED_NATS_URL: NATS server URL (default: nats://127.0.0.1:4222)
//   - LIFECYCLED_HISTORY_ENABLED: Record passes to the history store (default: true)
//   - LIFECYCLED_WATCH_ENABLED: Watch the config file for order changes (default: false)
//
// Example:
//
//	cfg := config.Load()
//	fmt.Println("Server port:", cfg.Server.Port)
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("LIFECYCLED_SERVER_HOST", "127.0.0.1"),
			Port:            getEnvInt("LIFECYCLED_SERVER_PORT", 9600),
			ShutdownTimeout: Duration(getEnvDuration("LIFECYCLED_SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)),
			RateLimit: RateLimitConfig{
				Enabled: getEnvBool("LIFECYCLED_SERVER_RATE_LIMIT_ENABLED", true),
				RPS:     float64(getEnvInt("LIFECYCLED_SERVER_RATE_LIMIT_RPS", 5)),
				Burst:   getEnvInt("LIFECYCLED_SERVER_RATE_LIMIT_BURST", 10),
			},
		},
		Engine: EngineConfig{
			GroupOrder: splitList(getEnvString("LIFECYCLED_ENGINE_GROUP_ORDER", "")),
			Parallel:   getEnvBool("LIFECYCLED_ENGINE_PARALLEL", false),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("LIFECYCLED_NATS_ENABLED", false),
			URL:           getEnvString("LIFECYCLED_NATS_URL", "nats://127.0.0.1:4222"),
			Name:          getEnvString("LIFECYCLED_NATS_NAME", "lifecycled"),
			User:          getEnvString("LIFECYCLED_NATS_USER", ""),
			Password:      Secret(getEnvString("LIFECYCLED_NATS_PASSWORD", "")),
			MaxReconnects: getEnvInt("LIFECYCLED_NATS_MAX_RECONNECTS", 5),
			ReconnectWait: Duration(getEnvDuration("LIFECYCLED_NATS_RECONNECT_WAIT", time.Second)),
			SubjectPrefix: getEnvString("LIFECYCLED_NATS_SUBJECT_PREFIX", "lifecycle"),
		},
		History: HistoryConfig{
			Enabled: getEnvBool("LIFECYCLED_HISTORY_ENABLED", true),
			Path:    getEnvString("LIFECYCLED_HISTORY_PATH", "~/.config/lifecycled/history.db"),
		},
		Watch: WatchConfig{
			Enabled:  getEnvBool("LIFECYCLED_WATCH_ENABLED", false),
			Debounce: Duration(getEnvDuration("LIFECYCLED_WATCH_DEBOUNCE", 500*time.Millisecond)),
		},
		Telemetry: TelemetryConfig{
			Enabled:     getEnvBool("LIFECYCLED_TELEMETRY_ENABLED", false),
			ServiceName: getEnvString("LIFECYCLED_TELEMETRY_SERVICE_NAME", "lifecycled"),
			Endpoint:    getEnvString("LIFECYCLED_TELEMETRY_ENDPOINT", "localhost:4317"),
			Protocol:    getEnvString("LIFECYCLED_TELEMETRY_PROTOCOL", "grpc"),
		},
		Log: LogConfig{
			Level:  getEnvString("LIFECYCLED_LOG_LEVEL", "info"),
			Format: getEnvString("LIFECYCLED_LOG_FORMAT", "json"),
		},
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive, got %v", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be >= 1, got %d", c.Server.RateLimit.Burst)
		}
	}

	if err := validateGroupOrder(c.Engine.GroupOrder); err != nil {
		return err
	}

	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return errors.New("nats url required when nats is enabled")
		}
		if c.NATS.MaxReconnects < -1 {
			return fmt.Errorf("nats max_reconnects must be >= -1, got %d", c.NATS.MaxReconnects)
		}
		if err := validateSubjectPrefix(c.NATS.SubjectPrefix); err != nil {
			return err
		}
	}

	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history path required when history is enabled")
	}

	if c.Watch.Enabled && c.Watch.Debounce.Duration() <= 0 {
		return errors.New("watch debounce must be positive")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http" {
			return fmt.Errorf("telemetry protocol must be 'grpc' or 'http', got %q", c.Telemetry.Protocol)
		}
	}

	return nil
}

// validateGroupOrder rejects empty and duplicate group names. An empty
// order is fine; the engine applies its own default.
func validateGroupOrder(order []string) error {
	seen := make(map[string]struct{}, len(order))
	for _, name := range order {
		if strings.TrimSpace(name) == "" {
			return errors.New("group order contains an empty name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("group order contains duplicate name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// validateSubjectPrefix rejects prefixes that would break NATS subject
// construction.
func validateSubjectPrefix(prefix string) error {
	if prefix == "" {
		return errors.New("nats subject_prefix cannot be empty")
	}
	if strings.ContainsAny(prefix, " \t*>") {
		return fmt.Errorf("nats subject_prefix %q contains invalid characters", prefix)
	}
	if strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		return fmt.Errorf("nats subject_prefix %q cannot start or end with '.'", prefix)
	}
	return nil
}

// splitList splits a comma-separated env value into trimmed parts.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
