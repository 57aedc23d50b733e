package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

func TestNew_Disabled(t *testing.T) {
	cfg := NewDefaultConfig()

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.False(t, tel.IsEnabled())
	assert.Nil(t, tel.TracerProvider())

	// Tracer and Meter must hand back usable no-ops.
	tracer := tel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop")
	span.End()

	meter := tel.Meter("test")
	counter, err := meter.Int64Counter("noop.count")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	_, err := New(context.Background(), cfg)
	require.ErrorContains(t, err, "invalid telemetry config")
}

func TestTelemetry_NilSafety(t *testing.T) {
	var tel *Telemetry

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.Nil(t, tel.LoggerProvider())
	assert.Nil(t, tel.TracerProvider())
	assert.False(t, tel.IsEnabled())
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))

	health := tel.Health()
	assert.False(t, health.Healthy)
	assert.True(t, health.Degraded)
}

func TestTelemetry_ShutdownMarksUnhealthy(t *testing.T) {
	tt := NewTestTelemetry()
	require.True(t, tt.Health().Healthy)

	require.NoError(t, tt.Shutdown(context.Background()))
	assert.False(t, tt.Health().Healthy)
}

func TestTestTelemetry_RecordsSpans(t *testing.T) {
	tt := NewTestTelemetry()

	tracer := tt.Tracer("test")
	_, span := tracer.Start(context.Background(), "unit-span")
	span.End()

	tt.AssertSpanExists(t, "unit-span")
	assert.Nil(t, tt.SpanByName("missing-span"))
}

type probeSource struct {
	obs *lifecycle.ObserverFuncs
}

func (s probeSource) Observers() []lifecycle.Registration {
	return []lifecycle.Registration{{
		Key:     "probe",
		Resolve: func(context.Context) (any, error) { return s.obs, nil },
	}}
}

func TestLifecyclePass_EmitsSpans(t *testing.T) {
	tt := NewTestTelemetry()

	obs := &lifecycle.ObserverFuncs{
		OnStart: func(context.Context) error { return nil },
	}
	eng, err := lifecycle.New(probeSource{obs: obs}, lifecycle.Options{
		TracerProvider: tt.TracerProvider(),
	})
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))

	tt.AssertSpanExists(t, "lifecycle.start")
	tt.AssertSpanExists(t, "lifecycle.preStart")
	tt.AssertSpanExists(t, "lifecycle.postStart")

	pass := tt.SpanByName("lifecycle.start")
	require.NotNil(t, pass)
	found := false
	for _, attr := range pass.Attributes() {
		if string(attr.Key) == "lifecycle.run_id" && attr.Value.AsString() != "" {
			found = true
		}
	}
	assert.True(t, found, "pass span should carry lifecycle.run_id")
}
