// internal/logging/sampling.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with level-aware sampling. Entries at Error
// and above always pass through; everything below shares one sampler.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	sampled := zapcore.NewSamplerWithOptions(
		&bandCore{Core: core, lo: TraceLevel, hi: zapcore.WarnLevel},
		cfg.Tick.Duration(),
		cfg.Initial,
		cfg.Thereafter,
	)
	errors := &bandCore{Core: core, lo: zapcore.ErrorLevel, hi: zapcore.FatalLevel}

	return zapcore.NewTee(sampled, errors)
}

// bandCore restricts a core to an inclusive level range.
type bandCore struct {
	zapcore.Core
	lo, hi zapcore.Level
}

func (c *bandCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.lo && lvl <= c.hi && c.Core.Enabled(lvl)
}

func (c *bandCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves the level band.
func (c *bandCore) With(fields []zapcore.Field) zapcore.Core {
	return &bandCore{
		Core: c.Core.With(fields),
		lo:   c.lo,
		hi:   c.hi,
	}
}
