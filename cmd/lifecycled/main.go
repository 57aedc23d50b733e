// Lifecycled orchestrates observer life-cycles over named groups with an
// HTTP control surface.
//
// The daemon wires its own infrastructure (history store, NATS publisher,
// HTTP API, config watcher) as observers in a binding registry and drives
// them through start and stop passes. Group order comes from the config
// file and can be changed at runtime through the API or by editing the
// file.
//
// Usage:
//
//	# Start with defaults
//	lifecycled
//
//	# Custom config file
//	lifecycled -config /etc/lifecycled/config.yaml
//
//	# Configure via environment
//	LIFECYCLED_SERVER_PORT=9700 LIFECYCLED_NATS_ENABLED=true lifecycled
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifecycled/internal/config"
	"github.com/fyrsmithlabs/lifecycled/internal/history"
	"github.com/fyrsmithlabs/lifecycled/internal/logging"
	"github.com/fyrsmithlabs/lifecycled/internal/messaging"
	"github.com/fyrsmithlabs/lifecycled/internal/server"
	"github.com/fyrsmithlabs/lifecycled/internal/telemetry"
	"github.com/fyrsmithlabs/lifecycled/internal/watch"
	"github.com/fyrsmithlabs/lifecycled/pkg/binding"
	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// defaultGroupOrder sequences the daemon's built-in groups. A group_order
// in the config file replaces it entirely.
var defaultGroupOrder = []string{"datasource", "messaging", "server"}

func main() {
	configPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  lifecycled           Start the lifecycled daemon\n")
			fmt.Fprintf(os.Stderr, "  lifecycled version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("lifecycled by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the daemon and blocks until ctx is cancelled.
//
// This function:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the logger
//  3. Registers the daemon's own observers (history, NATS, HTTP, watcher)
//  4. Drives the start pass
//  5. On cancellation, drives the stop pass in reverse group order
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logCfg, err := loggingConfig(cfg)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "starting lifecycled",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("parallel", cfg.Engine.Parallel))

	registry := binding.NewRegistry()
	recorder := server.NewRecorder()
	sinks := lifecycle.MultiSink{recorder}

	if cfg.History.Enabled {
		store, err := history.New(history.Config{Path: cfg.History.Path}, logger)
		if err != nil {
			return fmt.Errorf("creating history store: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
		if err := registry.Add(binding.NewObserverInstance("history", store).InGroup("datasource")); err != nil {
			return fmt.Errorf("registering history observer: %w", err)
		}
	}

	if cfg.NATS.Enabled {
		conn, err := messaging.NewConn(messaging.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			User:          cfg.NATS.User,
			Password:      cfg.NATS.Password,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait.Duration(),
		}, logger)
		if err != nil {
			return fmt.Errorf("creating NATS connection: %w", err)
		}
		publisher, err := messaging.NewPublisher(conn, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return fmt.Errorf("creating event publisher: %w", err)
		}
		sinks = append(sinks, publisher)
		if err := registry.Add(binding.NewObserverInstance("nats", conn).InGroup("messaging")); err != nil {
			return fmt.Errorf("registering NATS observer: %w", err)
		}
	}

	order := cfg.Engine.GroupOrder
	if len(order) == 0 {
		order = defaultGroupOrder
	}
	mode := lifecycle.Serial
	if cfg.Engine.Parallel {
		mode = lifecycle.Parallel
	}

	engine, err := lifecycle.New(registry, lifecycle.Options{
		GroupOrder:     order,
		Mode:           mode,
		Logger:         logger.Underlying(),
		TracerProvider: tel.TracerProvider(),
		Sink:           sinks,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	srv, err := server.NewServer(engine, recorder, logger, &server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
		Version:         version,
		RateLimit: server.RateLimitConfig{
			Enabled: cfg.Server.RateLimit.Enabled,
			RPS:     cfg.Server.RateLimit.RPS,
			Burst:   cfg.Server.RateLimit.Burst,
		},
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}
	if err := registry.Add(binding.NewObserverInstance("http", srv).InGroup("server")); err != nil {
		return fmt.Errorf("registering http observer: %w", err)
	}

	if cfg.Watch.Enabled {
		if configPath == "" {
			if err := config.EnsureConfigDir(); err != nil {
				return err
			}
		}
		path, err := config.ResolvePath(configPath)
		if err != nil {
			return err
		}
		watcher, err := watch.New(watch.Config{
			Path:     path,
			Debounce: cfg.Watch.Debounce.Duration(),
		}, engine, logger)
		if err != nil {
			return fmt.Errorf("creating config watcher: %w", err)
		}
		if err := registry.Add(binding.NewObserverInstance("config-watch", watcher).InGroup("server")); err != nil {
			return fmt.Errorf("registering config watcher: %w", err)
		}
	}

	logger.Info(ctx, "observers registered",
		zap.Int("count", registry.Len()),
		zap.Strings("group_order", engine.GroupOrder()))

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start pass: %w", err)
	}
	logger.Info(ctx, "startup complete", zap.String("addr", srv.Addr()))

	<-ctx.Done()
	logger.Info(ctx, "shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer stopCancel()
	if err := engine.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop pass: %w", err)
	}

	logger.Info(ctx, "shutdown complete")
	return nil
}

// telemetryConfig maps the daemon config onto the telemetry package's.
func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Protocol = cfg.Telemetry.Protocol
	return tc
}

// loggingConfig maps the daemon config onto the logging package's. OTEL
// log output follows the telemetry switch.
func loggingConfig(cfg *config.Config) (*logging.Config, error) {
	level, err := logging.LevelFromString(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	lc := logging.NewDefaultConfig()
	lc.Level = level
	lc.Format = cfg.Log.Format
	lc.Output.OTEL = cfg.Telemetry.Enabled
	return lc, nil
}
