// Package logging provides structured logging for the lifecycled daemon.
//
// # Overview
//
// The package wraps Zap with:
//   - A custom Trace level (-2, below Debug)
//   - Dual output (stdout plus OpenTelemetry)
//   - Automatic context correlation (trace_id, run_id, component)
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithComponent(ctx, "history")
//	logger.Info(ctx, "pass recorded", zap.Duration("duration", d))
//
// Hooks invoked by the lifecycle engine receive a context carrying the
// run ID of the active pass, and it is attached automatically:
//
//	{
//	  "ts": "2026-08-23T10:15:30Z",
//	  "level": "info",
//	  "msg": "pass recorded",
//	  "run_id": "9f7a1c2e-...",
//	  "component": "history",
//	  "duration": "45ms"
//	}
//
// # Sampling
//
// Entries below Error share a single sampler (first N per tick, then one
// in M). Error and above always pass through. Disable for debugging:
//
//	cfg.Sampling.Enabled = false
//
// # Testing
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "group started", zap.String("group", "server"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "group started")
//	tl.AssertField(t, "group started", "group", "server")
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect the parent or siblings.
package logging
