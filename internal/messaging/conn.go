// Package messaging owns the NATS side of lifecycled: a connection
// observer for the messaging group and a sink publishing engine events
// onto the broker.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifecycled/internal/config"
	"github.com/fyrsmithlabs/lifecycled/internal/logging"
)

// Config holds the NATS connection settings.
type Config struct {
	URL           string
	Name          string
	User          string
	Password      config.Secret
	MaxReconnects int
	ReconnectWait time.Duration
}

// Conn owns the broker connection as an observer in the messaging group.
// PreStart connects so groups ordered after messaging find the connection
// live; Stop drains in-flight messages before closing.
type Conn struct {
	config Config
	logger *logging.Logger
	nc     *nats.Conn
	closed chan struct{}
}

// NewConn creates an unconnected Conn. Zero config fields fall back to the
// client defaults the daemon ships with.
func NewConn(cfg Config, logger *logging.Logger) (*Conn, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Name == "" {
		cfg.Name = "lifecycled"
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 5
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 1 * time.Second
	}
	return &Conn{config: cfg, logger: logger}, nil
}

// NATS returns the live connection, or nil before PreStart.
func (c *Conn) NATS() *nats.Conn {
	return c.nc
}

// PreStart connects to the broker. With RetryOnFailedConnect the client
// keeps dialing in the background, so an unreachable broker does not fail
// the pass; publishes buffer until the connection lands.
func (c *Conn) PreStart(ctx context.Context) error {
	if c.nc != nil && !c.nc.IsClosed() {
		return nil
	}

	c.closed = make(chan struct{})
	opts := []nats.Option{
		nats.Name(c.config.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(c.config.MaxReconnects),
		nats.ReconnectWait(c.config.ReconnectWait),
		nats.ClosedHandler(func(*nats.Conn) { close(c.closed) }),
	}
	if c.config.User != "" {
		opts = append(opts, nats.UserInfo(c.config.User, c.config.Password.Value()))
	}

	nc, err := nats.Connect(c.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", c.config.URL, err)
	}
	c.nc = nc

	c.logger.Info(ctx, "connected to NATS",
		zap.String("url", c.config.URL),
		zap.String("name", c.config.Name),
	)
	return nil
}

// Stop drains the connection and waits for the close to complete. A ctx
// deadline cuts the drain short with a hard close.
func (c *Conn) Stop(ctx context.Context) error {
	if c.nc == nil || c.nc.IsClosed() {
		return nil
	}

	c.logger.Info(ctx, "draining NATS connection")
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return fmt.Errorf("drain: %w", err)
	}

	select {
	case <-c.closed:
		return nil
	case <-ctx.Done():
		c.nc.Close()
		return ctx.Err()
	}
}
