package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger_ObservesAllLevels(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "trace msg")
	tl.Debug(ctx, "debug msg")
	tl.Info(ctx, "info msg")

	assert.Len(t, tl.All(), 3)
	tl.AssertLogged(t, TraceLevel, "trace msg")
	tl.AssertLogged(t, zapcore.DebugLevel, "debug msg")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "info msg")
}

func TestTestLogger_FieldAssertions(t *testing.T) {
	tl := NewTestLogger()

	tl.Info(context.Background(), "group started",
		zap.String("group", "datasource"),
		zap.Int("members", 2),
	)

	tl.AssertField(t, "group started", "group", "datasource")
	tl.AssertFieldPresent(t, "group started", "members")
}

func TestTestLogger_Reset(t *testing.T) {
	tl := NewTestLogger()

	tl.Info(context.Background(), "before reset")
	tl.Reset()

	assert.Empty(t, tl.All())
}
