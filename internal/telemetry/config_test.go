package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lifecycled/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled, "telemetry must be off by default")
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.Equal(t, "lifecycled", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.True(t, cfg.Metrics.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	enabled := func() *Config {
		cfg := NewDefaultConfig()
		cfg.Enabled = true
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "disabled skips all checks",
			mutate: func(c *Config) { c.Enabled = false; c.Endpoint = "" },
		},
		{
			name:   "enabled with local endpoint",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty endpoint",
			mutate:  func(c *Config) { c.Endpoint = "" },
			wantErr: "endpoint is required",
		},
		{
			name:    "bad protocol",
			mutate:  func(c *Config) { c.Protocol = "udp" },
			wantErr: "protocol must be",
		},
		{
			name:    "empty service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: "service_name is required",
		},
		{
			name:    "empty service version",
			mutate:  func(c *Config) { c.ServiceVersion = "" },
			wantErr: "service_version is required",
		},
		{
			name:    "insecure remote endpoint rejected",
			mutate:  func(c *Config) { c.Endpoint = "collector.example.com:4317" },
			wantErr: "insecure connections to remote endpoints",
		},
		{
			name: "secure remote endpoint allowed",
			mutate: func(c *Config) {
				c.Endpoint = "collector.example.com:4317"
				c.Insecure = false
			},
		},
		{
			name:   "insecure loopback allowed",
			mutate: func(c *Config) { c.Endpoint = "127.0.0.1:4317" },
		},
		{
			name:   "insecure bracketed ipv6 loopback allowed",
			mutate: func(c *Config) { c.Endpoint = "[::1]:4317" },
		},
		{
			name:    "sampling rate above 1",
			mutate:  func(c *Config) { c.Sampling.Rate = 1.5 },
			wantErr: "sampling.rate",
		},
		{
			name:    "sampling rate below 0",
			mutate:  func(c *Config) { c.Sampling.Rate = -0.1 },
			wantErr: "sampling.rate",
		},
		{
			name: "zero export interval",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.ExportInterval = config.Duration(0)
			},
			wantErr: "export_interval",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Shutdown.Timeout = config.Duration(0) },
			wantErr: "shutdown.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabled()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_IsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{endpoint: "localhost:4317", want: true},
		{endpoint: "127.0.0.1:4317", want: true},
		{endpoint: "127.0.0.53:4317", want: true},
		{endpoint: "[::1]:4317", want: true},
		{endpoint: "[::1]", want: true},
		{endpoint: "::1", want: true},
		{endpoint: "collector.example.com:4317", want: false},
		{endpoint: "10.0.0.5:4317", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := &Config{Endpoint: tt.endpoint}
			assert.Equal(t, tt.want, cfg.isLocalEndpoint())
		})
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "host:4318", stripScheme("https://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("http://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("host:4318"))
}
