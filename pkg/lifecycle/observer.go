package lifecycle

import (
	"context"
	"fmt"
)

// The six hook interfaces. An observer implements any subset; each hook it
// omits is a no-op for the corresponding phase.

// PreStarter receives the preStart phase.
type PreStarter interface {
	PreStart(ctx context.Context) error
}

// Starter receives the start phase.
type Starter interface {
	Start(ctx context.Context) error
}

// PostStarter receives the postStart phase.
type PostStarter interface {
	PostStart(ctx context.Context) error
}

// PreStopper receives the preStop phase.
type PreStopper interface {
	PreStop(ctx context.Context) error
}

// Stopper receives the stop phase.
type Stopper interface {
	Stop(ctx context.Context) error
}

// PostStopper receives the postStop phase.
type PostStopper interface {
	PostStop(ctx context.Context) error
}

// Capabilities is implemented by observers that declare their hook set
// directly. When present it takes precedence over interface probing, which
// lets adapter types implement all six hook methods while exposing only the
// hooks actually wired.
type Capabilities interface {
	Phases() PhaseSet
}

// PhasesOf computes the hook set of v: the self-declared set when v
// implements Capabilities, otherwise one interface probe per hook. A zero
// result means v is not an observer.
func PhasesOf(v any) PhaseSet {
	if c, ok := v.(Capabilities); ok {
		return c.Phases()
	}
	var s PhaseSet
	if _, ok := v.(PreStarter); ok {
		s = s.With(PhasePreStart)
	}
	if _, ok := v.(Starter); ok {
		s = s.With(PhaseStart)
	}
	if _, ok := v.(PostStarter); ok {
		s = s.With(PhasePostStart)
	}
	if _, ok := v.(PreStopper); ok {
		s = s.With(PhasePreStop)
	}
	if _, ok := v.(Stopper); ok {
		s = s.With(PhaseStop)
	}
	if _, ok := v.(PostStopper); ok {
		s = s.With(PhasePostStop)
	}
	return s
}

// ObserverFuncs adapts plain functions into an observer. Nil fields are
// absent hooks. The zero value provides no hooks and is rejected at
// resolution.
type ObserverFuncs struct {
	OnPreStart  func(ctx context.Context) error
	OnStart     func(ctx context.Context) error
	OnPostStart func(ctx context.Context) error
	OnPreStop   func(ctx context.Context) error
	OnStop      func(ctx context.Context) error
	OnPostStop  func(ctx context.Context) error
}

// Phases reports the hooks backed by non-nil functions.
func (o *ObserverFuncs) Phases() PhaseSet {
	var s PhaseSet
	if o.OnPreStart != nil {
		s = s.With(PhasePreStart)
	}
	if o.OnStart != nil {
		s = s.With(PhaseStart)
	}
	if o.OnPostStart != nil {
		s = s.With(PhasePostStart)
	}
	if o.OnPreStop != nil {
		s = s.With(PhasePreStop)
	}
	if o.OnStop != nil {
		s = s.With(PhaseStop)
	}
	if o.OnPostStop != nil {
		s = s.With(PhasePostStop)
	}
	return s
}

func (o *ObserverFuncs) PreStart(ctx context.Context) error {
	if o.OnPreStart != nil {
		return o.OnPreStart(ctx)
	}
	return nil
}

func (o *ObserverFuncs) Start(ctx context.Context) error {
	if o.OnStart != nil {
		return o.OnStart(ctx)
	}
	return nil
}

func (o *ObserverFuncs) PostStart(ctx context.Context) error {
	if o.OnPostStart != nil {
		return o.OnPostStart(ctx)
	}
	return nil
}

func (o *ObserverFuncs) PreStop(ctx context.Context) error {
	if o.OnPreStop != nil {
		return o.OnPreStop(ctx)
	}
	return nil
}

func (o *ObserverFuncs) Stop(ctx context.Context) error {
	if o.OnStop != nil {
		return o.OnStop(ctx)
	}
	return nil
}

func (o *ObserverFuncs) PostStop(ctx context.Context) error {
	if o.OnPostStop != nil {
		return o.OnPostStop(ctx)
	}
	return nil
}

// invoke dispatches a single phase hook on v. Callers gate on the PhaseSet
// first; a set that claims a hook the instance does not provide is a
// programmer error and fails loudly rather than no-opping.
func invoke(ctx context.Context, v any, p Phase) error {
	switch p {
	case PhasePreStart:
		if h, ok := v.(PreStarter); ok {
			return h.PreStart(ctx)
		}
	case PhaseStart:
		if h, ok := v.(Starter); ok {
			return h.Start(ctx)
		}
	case PhasePostStart:
		if h, ok := v.(PostStarter); ok {
			return h.PostStart(ctx)
		}
	case PhasePreStop:
		if h, ok := v.(PreStopper); ok {
			return h.PreStop(ctx)
		}
	case PhaseStop:
		if h, ok := v.(Stopper); ok {
			return h.Stop(ctx)
		}
	case PhasePostStop:
		if h, ok := v.(PostStopper); ok {
			return h.PostStop(ctx)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPhase, p)
	}
	return fmt.Errorf("declared hook %s is not implemented", p)
}
