// Package server provides the HTTP API with pass status tracking.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// StatusResponse is the response body for GET /statusz.
type StatusResponse struct {
	Status      string        `json:"status"`
	Service     string        `json:"service"`
	Version     string        `json:"version,omitempty"`
	Order       []string      `json:"order"`
	Mode        string        `json:"mode"`
	Groups      []GroupStatus `json:"groups"`
	LastPass    *PassSummary  `json:"last_pass,omitempty"`
	CurrentPass *PassSummary  `json:"current_pass,omitempty"`
}

// GroupStatus describes one group as the next pass would see it.
type GroupStatus struct {
	Name    string         `json:"name"`
	Members []MemberStatus `json:"members"`
}

// MemberStatus describes one registered observer. Phases lists the hooks
// the resolved instance provides, in protocol order.
type MemberStatus struct {
	Key    string   `json:"key"`
	Phases []string `json:"phases,omitempty"`
}

// OrderRequest is the request body for PUT /v1/groups/order.
type OrderRequest struct {
	Order []string `json:"order"`
}

// OrderResponse is the response body for the group order endpoints.
type OrderResponse struct {
	Order []string `json:"order"`
}

// PassSummary condenses the events of one pass.
type PassSummary struct {
	RunID      string         `json:"run_id"`
	Op         string         `json:"op"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DurationMS int64          `json:"duration_ms"`
	Phases     []PhaseSummary `json:"phases,omitempty"`
}

// PhaseSummary is the duration of one completed phase.
type PhaseSummary struct {
	Phase      string `json:"phase"`
	DurationMS int64  `json:"duration_ms"`
}

// Recorder keeps the latest pass summaries for /statusz. It implements
// lifecycle.Sink; wire it into the engine alongside the other sinks.
type Recorder struct {
	mu      sync.RWMutex
	current *PassSummary
	last    *PassSummary
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

var _ lifecycle.Sink = (*Recorder)(nil)

// Publish folds one engine event into the pass summaries. Events for a run
// the recorder never saw start are dropped.
func (r *Recorder) Publish(_ context.Context, ev lifecycle.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case lifecycle.EventPassStarted:
		r.current = &PassSummary{
			RunID:     ev.RunID,
			Op:        ev.Op,
			Status:    "running",
			StartedAt: ev.Timestamp,
		}

	case lifecycle.EventPhaseCompleted:
		if r.current == nil || r.current.RunID != ev.RunID {
			return
		}
		r.current.Phases = append(r.current.Phases, PhaseSummary{
			Phase:      string(ev.Phase),
			DurationMS: ev.DurationMS,
		})

	case lifecycle.EventObserverFailed:
		if r.current == nil || r.current.RunID != ev.RunID {
			return
		}
		r.current.Error = ev.Error

	case lifecycle.EventPassCompleted, lifecycle.EventPassFailed:
		if r.current == nil || r.current.RunID != ev.RunID {
			return
		}
		r.current.Status = "ok"
		if ev.Type == lifecycle.EventPassFailed {
			r.current.Status = "failed"
			if ev.Error != "" {
				r.current.Error = ev.Error
			}
		}
		r.current.FinishedAt = ev.Timestamp
		r.current.DurationMS = ev.DurationMS
		r.last, r.current = r.current, nil
	}
}

// LastPass returns a copy of the most recent finished pass, or nil when no
// pass has finished yet.
func (r *Recorder) LastPass() *PassSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clonePass(r.last)
}

// CurrentPass returns a copy of the pass in flight, or nil.
func (r *Recorder) CurrentPass() *PassSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clonePass(r.current)
}

func clonePass(p *PassSummary) *PassSummary {
	if p == nil {
		return nil
	}
	out := *p
	out.Phases = append([]PhaseSummary(nil), p.Phases...)
	return &out
}
