package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Mode selects how a group's members are notified within one phase.
type Mode int

const (
	// Serial awaits each member's hook before the next member's begins.
	Serial Mode = iota

	// Parallel starts all of a group's hooks together, then joins before
	// any further work. Fan-out never crosses a group boundary.
	Parallel
)

func (m Mode) String() string {
	if m == Parallel {
		return "parallel"
	}
	return "serial"
}

// Notifier drives phase sequences over ordered groups. It holds no
// per-pass state; a single Notifier serves every pass of an Engine.
type Notifier struct {
	log     *zap.Logger
	tracer  trace.Tracer
	sink    Sink
	metrics *Metrics
}

// NotifierOptions configures a Notifier. Zero fields fall back to no-op
// logging, the global tracer provider and a discarding sink.
type NotifierOptions struct {
	Logger *zap.Logger
	Tracer trace.Tracer
	Sink   Sink
}

// NewNotifier creates a Notifier.
func NewNotifier(opts NotifierOptions) *Notifier {
	n := &Notifier{
		log:     opts.Logger,
		tracer:  opts.Tracer,
		sink:    opts.Sink,
		metrics: NewMetrics(),
	}
	if n.log == nil {
		n.log = zap.NewNop()
	}
	if n.tracer == nil {
		n.tracer = otel.Tracer(instrumentationName)
	}
	if n.sink == nil {
		n.sink = NopSink{}
	}
	return n
}

// slot holds one member's pass-local resolution state. Each slot is
// touched by at most one goroutine per phase and phases are joined, so no
// lock is needed; the instance lives only as long as the pass.
type slot struct {
	reg      Registration
	instance any
	caps     PhaseSet
	resolved bool
}

type groupSlots struct {
	name  string
	slots []*slot
}

// Notify runs each phase, in the given sequence, over every group in the
// given sequence. A phase completes for all groups before the next phase
// begins anywhere, regardless of mode. Unknown phases fail before any hook
// runs. The first hook or resolution failure aborts the pass as a
// *PhaseError; a cancelled ctx aborts between phases.
func (n *Notifier) Notify(ctx context.Context, groups []Group, phases []Phase, mode Mode) error {
	for _, p := range phases {
		if !p.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownPhase, p)
		}
	}

	pass := passFromContext(ctx)
	gs := make([]groupSlots, len(groups))
	for i, g := range groups {
		slots := make([]*slot, len(g.Members))
		for j, m := range g.Members {
			slots[j] = &slot{reg: m}
		}
		gs[i] = groupSlots{name: g.Name, slots: slots}
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.notifyPhase(ctx, pass, phase, gs, mode); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) notifyPhase(ctx context.Context, pass passInfo, phase Phase, gs []groupSlots, mode Mode) error {
	ctx, span := n.tracer.Start(ctx, "lifecycle."+string(phase),
		trace.WithAttributes(
			attribute.String("lifecycle.run_id", pass.runID),
			attribute.String("lifecycle.mode", mode.String()),
			attribute.Int("lifecycle.groups", len(gs)),
		))
	defer span.End()

	start := time.Now()
	n.sink.Publish(ctx, Event{
		Type: EventPhaseStarted, RunID: pass.runID, Op: pass.op,
		Phase: phase, Timestamp: start,
	})

	for _, g := range gs {
		if err := n.notifyGroup(ctx, phase, g, mode); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	n.sink.Publish(ctx, Event{
		Type: EventPhaseCompleted, RunID: pass.runID, Op: pass.op,
		Phase: phase, DurationMS: time.Since(start).Milliseconds(), Timestamp: time.Now(),
	})
	return nil
}

func (n *Notifier) notifyGroup(ctx context.Context, phase Phase, g groupSlots, mode Mode) error {
	n.log.Debug("notifying group",
		zap.String("phase", string(phase)),
		zap.String("group", g.name),
		zap.Int("members", len(g.slots)),
		zap.Stringer("mode", mode),
	)
	if mode == Parallel {
		return n.notifyParallel(ctx, phase, g)
	}
	for _, s := range g.slots {
		if err := n.notifyMember(ctx, phase, g.name, s); err != nil {
			return err
		}
	}
	return nil
}

// notifyParallel fans a group out and joins. Started siblings are never
// cancelled when one fails; the first failure in member order is returned
// after the join so repeated runs surface the same error.
func (n *Notifier) notifyParallel(ctx context.Context, phase Phase, g groupSlots) error {
	var wg sync.WaitGroup
	errs := make([]error, len(g.slots))
	for i, s := range g.slots {
		wg.Add(1)
		go func(i int, s *slot) {
			defer wg.Done()
			errs[i] = n.notifyMember(ctx, phase, g.name, s)
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) notifyMember(ctx context.Context, phase Phase, group string, s *slot) error {
	if !s.resolved {
		inst, err := s.reg.Resolve(ctx)
		if err != nil {
			return &PhaseError{Phase: phase, Group: group, Key: s.reg.Key, Err: fmt.Errorf("resolve: %w", err)}
		}
		caps := PhasesOf(inst)
		if caps == 0 {
			return &PhaseError{Phase: phase, Group: group, Key: s.reg.Key, Err: ErrNotObserver}
		}
		s.instance, s.caps, s.resolved = inst, caps, true
	}
	if !s.caps.Has(phase) {
		return nil
	}

	start := time.Now()
	err := invoke(ctx, s.instance, phase)
	elapsed := time.Since(start)
	n.metrics.RecordHook(string(phase), group, elapsed.Seconds())
	if err != nil {
		n.metrics.RecordHookFailure(string(phase), group)
		pass := passFromContext(ctx)
		n.log.Error("lifecycle hook failed",
			zap.String("run_id", pass.runID),
			zap.String("phase", string(phase)),
			zap.String("group", group),
			zap.String("observer", s.reg.Key),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		n.sink.Publish(ctx, Event{
			Type: EventObserverFailed, RunID: pass.runID, Op: pass.op,
			Phase: phase, Group: group, Key: s.reg.Key,
			Error: err.Error(), DurationMS: elapsed.Milliseconds(), Timestamp: time.Now(),
		})
		return &PhaseError{Phase: phase, Group: group, Key: s.reg.Key, Err: err}
	}
	n.log.Debug("lifecycle hook completed",
		zap.String("phase", string(phase)),
		zap.String("group", group),
		zap.String("observer", s.reg.Key),
		zap.Duration("duration", elapsed),
	)
	return nil
}
