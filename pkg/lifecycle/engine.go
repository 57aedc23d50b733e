package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"

// Options configures an Engine.
type Options struct {
	// GroupOrder is the initial group order. Defaults to ["server"].
	GroupOrder []string

	// Mode selects serial or parallel fan-out within groups. Serial by
	// default.
	Mode Mode

	// Logger for pass and hook logging. No-op by default.
	Logger *zap.Logger

	// TracerProvider for pass and phase spans. The global provider by
	// default.
	TracerProvider trace.TracerProvider

	// Sink receives pass, phase and failure events. Discarded by default.
	Sink Sink
}

// Engine composes group sorting and phase notification into the two public
// operations Start and Stop. It borrows the registry through Source and
// owns no observer lifetimes: entries are re-queried and re-resolved on
// every pass, so late-bound replacement in the registry takes effect on
// the next call.
type Engine struct {
	src      Source
	log      *zap.Logger
	tracer   trace.Tracer
	sink     Sink
	notifier *Notifier
	metrics  *Metrics

	mu    sync.RWMutex
	order []string
	mode  Mode
}

// New creates an Engine over src. The initial group order is validated the
// same way SetGroupOrder validates.
func New(src Source, opts Options) (*Engine, error) {
	if src == nil {
		return nil, fmt.Errorf("source is required")
	}
	order := opts.GroupOrder
	if order == nil {
		order = DefaultGroupOrder()
	}
	if err := validateGroupOrder(order); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var tracer trace.Tracer
	if opts.TracerProvider != nil {
		tracer = opts.TracerProvider.Tracer(instrumentationName)
	} else {
		tracer = otel.Tracer(instrumentationName)
	}
	sink := opts.Sink
	if sink == nil {
		sink = NopSink{}
	}

	e := &Engine{
		src:     src,
		log:     log,
		tracer:  tracer,
		sink:    sink,
		metrics: NewMetrics(),
		order:   append([]string(nil), order...),
		mode:    opts.Mode,
	}
	e.notifier = NewNotifier(NotifierOptions{Logger: log, Tracer: tracer, Sink: sink})
	return e, nil
}

// Start drives preStart, start and postStart over all groups in the
// current order. The first failure aborts the pass; groups already through
// a phase stay as that phase left them.
func (e *Engine) Start(ctx context.Context) error {
	return e.run(ctx, OpStart, StartPhases(), false)
}

// Stop drives preStop, stop and postStop over all groups in the reverse of
// the current order. Member order within a group is not reversed: members
// keep registration order in both directions.
func (e *Engine) Stop(ctx context.Context) error {
	return e.run(ctx, OpStop, StopPhases(), true)
}

// SetGroupOrder replaces the group order used by subsequent Start and Stop
// calls. Empty and duplicate names are rejected.
func (e *Engine) SetGroupOrder(names ...string) error {
	if err := validateGroupOrder(names); err != nil {
		return err
	}
	e.mu.Lock()
	e.order = append([]string(nil), names...)
	e.mu.Unlock()
	e.log.Info("group order updated", zap.Strings("order", names))
	return nil
}

// GroupOrder returns a copy of the current group order.
func (e *Engine) GroupOrder() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.order...)
}

// Mode returns the configured fan-out mode.
func (e *Engine) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Groups returns the groups a pass started now would see, in start order.
// It is a point-in-time view for introspection; passes recompute their
// own.
func (e *Engine) Groups() []Group {
	return ComputeGroups(e.src.Observers(), e.GroupOrder())
}

func (e *Engine) run(ctx context.Context, op string, phases []Phase, reverse bool) error {
	runID := uuid.NewString()
	e.mu.RLock()
	order := append([]string(nil), e.order...)
	mode := e.mode
	e.mu.RUnlock()

	ctx = withPass(ctx, passInfo{runID: runID, op: op})
	ctx, span := e.tracer.Start(ctx, "lifecycle."+op,
		trace.WithAttributes(
			attribute.String("lifecycle.run_id", runID),
			attribute.StringSlice("lifecycle.order", order),
			attribute.String("lifecycle.mode", mode.String()),
		))
	defer span.End()

	entries := e.src.Observers()
	groups := ComputeGroups(entries, order)
	if reverse {
		groups = reversedGroups(groups)
	}
	e.metrics.SetObservers(len(entries))

	e.log.Info("lifecycle pass starting",
		zap.String("run_id", runID),
		zap.String("op", op),
		zap.Strings("order", order),
		zap.Int("observers", len(entries)),
		zap.Int("groups", len(groups)),
		zap.Stringer("mode", mode),
	)
	start := time.Now()
	e.sink.Publish(ctx, Event{Type: EventPassStarted, RunID: runID, Op: op, Timestamp: start})

	err := e.notifier.Notify(ctx, groups, phases, mode)
	elapsed := time.Since(start)
	e.metrics.RecordPass(op, err == nil, elapsed.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.sink.Publish(ctx, Event{
			Type: EventPassFailed, RunID: runID, Op: op,
			Error: err.Error(), DurationMS: elapsed.Milliseconds(), Timestamp: time.Now(),
		})
		e.log.Error("lifecycle pass failed",
			zap.String("run_id", runID),
			zap.String("op", op),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	e.sink.Publish(ctx, Event{
		Type: EventPassCompleted, RunID: runID, Op: op,
		DurationMS: elapsed.Milliseconds(), Timestamp: time.Now(),
	})
	e.log.Info("lifecycle pass completed",
		zap.String("run_id", runID),
		zap.String("op", op),
		zap.Duration("duration", elapsed),
	)
	return nil
}

func reversedGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[len(groups)-1-i] = g
	}
	return out
}

func validateGroupOrder(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty group name", ErrInvalidGroupOrder)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate group name %q", ErrInvalidGroupOrder, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
