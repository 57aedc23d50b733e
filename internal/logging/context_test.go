package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

// assertFieldExists checks that fields contain key with a string value.
func assertFieldExists(t *testing.T, fields []zapcore.Field, key, want string) {
	t.Helper()
	for _, f := range fields {
		if f.Key == key && f.String == want {
			return
		}
	}
	t.Errorf("field %q=%q not found in %+v", key, want, fields)
}

func TestContextFields_Empty(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}

func TestContextFields_Component(t *testing.T) {
	ctx := WithComponent(context.Background(), "messaging")
	assertFieldExists(t, ContextFields(ctx), "component", "messaging")
}

func TestContextFields_RequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	assertFieldExists(t, ContextFields(ctx), "request.id", "req-42")
}

func TestWithComponent_Validation(t *testing.T) {
	tests := []struct {
		name      string
		component string
	}{
		{name: "empty", component: ""},
		{name: "spaces", component: "my component"},
		{name: "slash", component: "a/b"},
		{name: "too long", component: strings.Repeat("x", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() {
				WithComponent(context.Background(), tt.component)
			})
		})
	}

	assert.NotPanics(t, func() {
		WithComponent(context.Background(), "server-01_a")
	})
}

func TestWithRequestID_Validation(t *testing.T) {
	assert.Panics(t, func() {
		WithRequestID(context.Background(), "")
	})
	assert.Panics(t, func() {
		WithRequestID(context.Background(), "bad id")
	})
	assert.NotPanics(t, func() {
		WithRequestID(context.Background(), "req_123-abc")
	})
}

func TestComponentFromContext_Missing(t *testing.T) {
	assert.Empty(t, ComponentFromContext(context.Background()))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

type staticSource []lifecycle.Registration

func (s staticSource) Observers() []lifecycle.Registration { return s }

func TestContextFields_RunIDFromLifecyclePass(t *testing.T) {
	var fields []zapcore.Field
	obs := &lifecycle.ObserverFuncs{
		OnStart: func(ctx context.Context) error {
			fields = ContextFields(ctx)
			return nil
		},
	}

	src := staticSource{{
		Key:     "probe",
		Resolve: func(context.Context) (any, error) { return obs, nil },
	}}
	eng, err := lifecycle.New(src, lifecycle.Options{})
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))

	found := false
	for _, f := range fields {
		if f.Key == "run_id" && f.String != "" {
			found = true
		}
	}
	assert.True(t, found, "hook context should carry run_id, got %+v", fields)
}

func TestWithLogger_RoundTrip(t *testing.T) {
	logger := &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
	ctx := WithLogger(context.Background(), logger)

	got := FromContext(ctx)
	require.Same(t, logger, got)
}

func TestFromContext_DefaultNop(t *testing.T) {
	got := FromContext(context.Background())
	require.NotNil(t, got)
	require.NotNil(t, got.zap)

	// Must not panic even though nothing is configured.
	got.Info(context.Background(), "discarded")
}
