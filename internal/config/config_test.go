package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		validate func(*testing.T, *Config)
	}{
		{
			name: "default values",
			env:  map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Host != "127.0.0.1" {
					t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
				}
				if cfg.Server.Port != 9600 {
					t.Errorf("Server.Port = %d, want 9600", cfg.Server.Port)
				}
				if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
					t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout.Duration())
				}
				if len(cfg.Engine.GroupOrder) != 0 {
					t.Errorf("Engine.GroupOrder = %v, want empty", cfg.Engine.GroupOrder)
				}
				if cfg.Engine.Parallel {
					t.Error("Engine.Parallel = true, want false")
				}
				if cfg.NATS.Enabled {
					t.Error("NATS.Enabled = true, want false (disabled by default)")
				}
				if cfg.NATS.URL != "nats://127.0.0.1:4222" {
					t.Errorf("NATS.URL = %q, want nats://127.0.0.1:4222", cfg.NATS.URL)
				}
				if cfg.NATS.SubjectPrefix != "lifecycle" {
					t.Errorf("NATS.SubjectPrefix = %q, want lifecycle", cfg.NATS.SubjectPrefix)
				}
				if !cfg.History.Enabled {
					t.Error("History.Enabled = false, want true")
				}
				if cfg.Watch.Enabled {
					t.Error("Watch.Enabled = true, want false")
				}
				if cfg.Telemetry.Enabled {
					t.Error("Telemetry.Enabled = true, want false (disabled by default)")
				}
				if cfg.Telemetry.ServiceName != "lifecycled" {
					t.Errorf("Telemetry.ServiceName = %q, want lifecycled", cfg.Telemetry.ServiceName)
				}
				if cfg.Log.Level != "info" {
					t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
				}
			},
		},
		{
			name: "environment variable overrides",
			env: map[string]string{
				"LIFECYCLED_SERVER_PORT":             "7777",
				"LIFECYCLED_SERVER_SHUTDOWN_TIMEOUT": "5s",
				"LIFECYCLED_ENGINE_PARALLEL":         "true",
				"LIFECYCLED_ENGINE_GROUP_ORDER":      "datasource, messaging,server",
				"LIFECYCLED_NATS_ENABLED":            "true",
				"LIFECYCLED_NATS_URL":                "nats://broker:4222",
				"LIFECYCLED_LOG_LEVEL":               "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 7777 {
					t.Errorf("Server.Port = %d, want 7777", cfg.Server.Port)
				}
				if cfg.Server.ShutdownTimeout.Duration() != 5*time.Second {
					t.Errorf("Server.ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout.Duration())
				}
				if !cfg.Engine.Parallel {
					t.Error("Engine.Parallel = false, want true")
				}
				want := []string{"datasource", "messaging", "server"}
				if len(cfg.Engine.GroupOrder) != len(want) {
					t.Fatalf("Engine.GroupOrder = %v, want %v", cfg.Engine.GroupOrder, want)
				}
				for i := range want {
					if cfg.Engine.GroupOrder[i] != want[i] {
						t.Errorf("Engine.GroupOrder[%d] = %q, want %q", i, cfg.Engine.GroupOrder[i], want[i])
					}
				}
				if !cfg.NATS.Enabled {
					t.Error("NATS.Enabled = false, want true")
				}
				if cfg.NATS.URL != "nats://broker:4222" {
					t.Errorf("NATS.URL = %q, want nats://broker:4222", cfg.NATS.URL)
				}
				if cfg.Log.Level != "debug" {
					t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
				}
			},
		},
		{
			name: "malformed values fall back to defaults",
			env: map[string]string{
				"LIFECYCLED_SERVER_PORT":             "not-a-number",
				"LIFECYCLED_SERVER_SHUTDOWN_TIMEOUT": "soon",
				"LIFECYCLED_NATS_ENABLED":            "maybe",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9600 {
					t.Errorf("Server.Port = %d, want 9600", cfg.Server.Port)
				}
				if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
					t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout.Duration())
				}
				if cfg.NATS.Enabled {
					t.Error("NATS.Enabled = true, want false")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := Load()
			tt.validate(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Load()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default config is valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "shutdown timeout",
		},
		{
			name: "rate limit zero rps",
			mutate: func(c *Config) {
				c.Server.RateLimit.Enabled = true
				c.Server.RateLimit.RPS = 0
			},
			wantErr: "rate limit rps",
		},
		{
			name: "rate limit zero burst",
			mutate: func(c *Config) {
				c.Server.RateLimit.Enabled = true
				c.Server.RateLimit.Burst = 0
			},
			wantErr: "rate limit burst",
		},
		{
			name:    "empty group name",
			mutate:  func(c *Config) { c.Engine.GroupOrder = []string{"datasource", " "} },
			wantErr: "empty name",
		},
		{
			name:    "duplicate group name",
			mutate:  func(c *Config) { c.Engine.GroupOrder = []string{"server", "server"} },
			wantErr: "duplicate name",
		},
		{
			name: "nats enabled without url",
			mutate: func(c *Config) {
				c.NATS.Enabled = true
				c.NATS.URL = ""
			},
			wantErr: "nats url required",
		},
		{
			name: "nats wildcard subject prefix",
			mutate: func(c *Config) {
				c.NATS.Enabled = true
				c.NATS.SubjectPrefix = "lifecycle.>"
			},
			wantErr: "invalid characters",
		},
		{
			name: "nats dotted prefix edges",
			mutate: func(c *Config) {
				c.NATS.Enabled = true
				c.NATS.SubjectPrefix = ".lifecycle"
			},
			wantErr: "cannot start or end",
		},
		{
			name: "nats disabled skips nats checks",
			mutate: func(c *Config) {
				c.NATS.Enabled = false
				c.NATS.URL = ""
			},
		},
		{
			name: "history enabled without path",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Path = ""
			},
			wantErr: "history path required",
		},
		{
			name: "watch zero debounce",
			mutate: func(c *Config) {
				c.Watch.Enabled = true
				c.Watch.Debounce = 0
			},
			wantErr: "watch debounce",
		},
		{
			name: "telemetry without service name",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.ServiceName = ""
			},
			wantErr: "service name required",
		},
		{
			name: "telemetry bad protocol",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Protocol = "udp"
			},
			wantErr: "telemetry protocol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "", want: nil},
		{input: "server", want: []string{"server"}},
		{input: "a,b,c", want: []string{"a", "b", "c"}},
		{input: " a , b ", want: []string{"a", "b"}},
		{input: ",,", want: []string{}},
	}

	for _, tt := range tests {
		got := splitList(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("splitList(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}
