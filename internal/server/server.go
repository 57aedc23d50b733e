// Package server provides the HTTP API for lifecycled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/lifecycled/internal/logging"
	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

// Engine is the slice of the lifecycle engine the API serves: order
// introspection and mutation plus the group snapshot behind /statusz.
type Engine interface {
	GroupOrder() []string
	SetGroupOrder(names ...string) error
	Groups() []lifecycle.Group
	Mode() lifecycle.Mode
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	Service         string
	Version         string
	RateLimit       RateLimitConfig
}

// RateLimitConfig caps mutating requests per client IP.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// Server exposes the engine over HTTP. It is itself an observer: PreStart
// binds the listener, Start serves in the background and Stop shuts down
// gracefully, so it registers in the server group like any other member.
type Server struct {
	echo     *echo.Echo
	engine   Engine
	recorder *Recorder
	logger   *logging.Logger
	config   *Config

	limMu       sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time

	serveErr chan error
}

// NewServer creates a new HTTP server. The recorder may be nil, in which
// case /statusz omits the pass summaries.
func NewServer(engine Engine, recorder *Recorder, logger *logging.Logger, cfg *Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:            "127.0.0.1",
			Port:            9600,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       RateLimitConfig{Enabled: true, RPS: 5, Burst: 10},
		}
	}
	if cfg.Service == "" {
		cfg.Service = "lifecycled"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		engine:   engine,
		recorder: recorder,
		logger:   logger,
		config:   cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/statusz", s.handleStatus)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.echo.Group("/v1")
	v1.GET("/groups/order", s.handleGetOrder)
	v1.PUT("/groups/order", s.handleSetOrder, s.rateLimit)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.config.Service,
		Version: s.config.Version,
	})
}

// handleStatus returns the engine snapshot: the current order, the groups a
// pass started now would see, and the latest pass summaries. Member phases
// come from resolving each registration; a member that fails to resolve is
// listed by key alone.
func (s *Server) handleStatus(c echo.Context) error {
	ctx := c.Request().Context()

	groups := s.engine.Groups()
	gs := make([]GroupStatus, len(groups))
	for i, g := range groups {
		members := make([]MemberStatus, len(g.Members))
		for j, m := range g.Members {
			ms := MemberStatus{Key: m.Key}
			if inst, err := m.Resolve(ctx); err == nil {
				for _, p := range lifecycle.PhasesOf(inst).Phases() {
					ms.Phases = append(ms.Phases, string(p))
				}
			}
			members[j] = ms
		}
		gs[i] = GroupStatus{Name: g.Name, Members: members}
	}

	resp := StatusResponse{
		Status:  "ok",
		Service: s.config.Service,
		Version: s.config.Version,
		Order:   s.engine.GroupOrder(),
		Mode:    s.engine.Mode().String(),
		Groups:  gs,
	}
	if s.recorder != nil {
		resp.LastPass = s.recorder.LastPass()
		resp.CurrentPass = s.recorder.CurrentPass()
	}

	return c.JSON(http.StatusOK, resp)
}

// handleGetOrder returns the current group order.
func (s *Server) handleGetOrder(c echo.Context) error {
	return c.JSON(http.StatusOK, OrderResponse{Order: s.engine.GroupOrder()})
}

// handleSetOrder replaces the group order used by subsequent passes.
func (s *Server) handleSetOrder(c echo.Context) error {
	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid order request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if len(req.Order) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "order field is required")
	}

	old := s.engine.GroupOrder()
	if err := s.engine.SetGroupOrder(req.Order...); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s.logger.Info(c.Request().Context(), "group order updated via api",
		zap.Strings("old", old),
		zap.Strings("new", req.Order),
	)

	return c.JSON(http.StatusOK, OrderResponse{Order: s.engine.GroupOrder()})
}

// rateLimit guards mutating routes with a per-client-IP token bucket.
func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.config.RateLimit.Enabled {
			return next(c)
		}

		ip := c.RealIP()
		if !s.limiterFor(ip).Allow() {
			s.logger.Warn(c.Request().Context(), "rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Path()),
			)
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}

		return next(c)
	}
}

// limiterFor returns the rate limiter for the given IP address, creating it
// on first use. The map is rebuilt hourly to prevent memory leaks from
// one-off clients.
func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()

	if s.limiters == nil || time.Since(s.lastCleanup) > time.Hour {
		s.limiters = make(map[string]*rate.Limiter)
		s.lastCleanup = time.Now()
	}

	limiter, exists := s.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit.RPS), s.config.RateLimit.Burst)
		s.limiters[ip] = limiter
	}

	return limiter
}

// Addr returns the bound listen address, or the configured address when the
// listener is not yet bound. With Port 0 the bound address carries the real
// port.
func (s *Server) Addr() string {
	if s.echo.Listener != nil {
		return s.echo.Listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// PreStart binds the listener so address conflicts surface before any group
// begins its start hooks.
func (s *Server) PreStart(ctx context.Context) error {
	if s.echo.Listener != nil {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	s.echo.Listener = ln
	s.logger.Info(ctx, "listener bound", zap.String("addr", ln.Addr().String()))
	return nil
}

// Start serves in the background on the listener bound by PreStart, binding
// it here when PreStart was skipped.
func (s *Server) Start(ctx context.Context) error {
	if s.echo.Listener == nil {
		if err := s.PreStart(ctx); err != nil {
			return err
		}
	}
	s.logger.Info(ctx, "starting http server", zap.String("addr", s.Addr()))

	s.serveErr = make(chan error, 1)
	go func() {
		s.serveErr <- s.echo.Start("")
	}()
	return nil
}

// Stop gracefully shuts down the server. When ctx carries no deadline the
// configured shutdown timeout applies.
func (s *Server) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	s.logger.Info(ctx, "shutting down http server")
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if s.serveErr != nil {
		err := <-s.serveErr
		s.serveErr = nil
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}
	return nil
}
