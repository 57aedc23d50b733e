package lifecycle

import (
	"context"
	"time"
)

// EventType classifies lifecycle events.
type EventType string

const (
	EventPassStarted    EventType = "pass_started"
	EventPassCompleted  EventType = "pass_completed"
	EventPassFailed     EventType = "pass_failed"
	EventPhaseStarted   EventType = "phase_started"
	EventPhaseCompleted EventType = "phase_completed"
	EventObserverFailed EventType = "observer_failed"
)

// Event describes one step of a pass. RunID ties all events of a pass
// together; Op is "start" or "stop". Phase, Group and Key are set on the
// events they apply to.
type Event struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	Op         string    `json:"op"`
	Phase      Phase     `json:"phase,omitempty"`
	Group      string    `json:"group,omitempty"`
	Key        string    `json:"key,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink receives engine events. Publish must not block the pass; sinks own
// their delivery errors (log and drop, never fail the pass).
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}
