package lifecycle

import "strings"

// Phase identifies one of the six points in the start/stop protocol.
type Phase string

const (
	// PhasePreStart runs before start, for work that must precede the
	// main start hook of every observer (binding listeners, opening files).
	PhasePreStart Phase = "preStart"

	// PhaseStart is the main start hook.
	PhaseStart Phase = "start"

	// PhasePostStart runs after every group has started.
	PhasePostStart Phase = "postStart"

	// PhasePreStop runs before stop, for draining and flushing.
	PhasePreStop Phase = "preStop"

	// PhaseStop is the main stop hook.
	PhaseStop Phase = "stop"

	// PhasePostStop runs after every group has stopped.
	PhasePostStop Phase = "postStop"
)

// StartPhases returns the start triad in execution order.
func StartPhases() []Phase {
	return []Phase{PhasePreStart, PhaseStart, PhasePostStart}
}

// StopPhases returns the stop triad in execution order.
func StopPhases() []Phase {
	return []Phase{PhasePreStop, PhaseStop, PhasePostStop}
}

// Valid reports whether p is one of the six protocol phases.
func (p Phase) Valid() bool {
	return phaseBit(p) != 0
}

// PhaseSet is a bitmask of phases. It records, once per resolution, which
// hooks an observer actually provides, so phase dispatch never re-probes
// the instance.
type PhaseSet uint8

const allPhases = PhaseSet(1<<6 - 1)

func phaseBit(p Phase) PhaseSet {
	switch p {
	case PhasePreStart:
		return 1 << 0
	case PhaseStart:
		return 1 << 1
	case PhasePostStart:
		return 1 << 2
	case PhasePreStop:
		return 1 << 3
	case PhaseStop:
		return 1 << 4
	case PhasePostStop:
		return 1 << 5
	}
	return 0
}

// With returns s with p added.
func (s PhaseSet) With(p Phase) PhaseSet {
	return s | phaseBit(p)
}

// Has reports whether p is in the set.
func (s PhaseSet) Has(p Phase) bool {
	b := phaseBit(p)
	return b != 0 && s&b != 0
}

// Phases returns the members of the set in protocol order.
func (s PhaseSet) Phases() []Phase {
	var out []Phase
	for _, p := range [...]Phase{PhasePreStart, PhaseStart, PhasePostStart, PhasePreStop, PhaseStop, PhasePostStop} {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s PhaseSet) String() string {
	ps := s.Phases()
	if len(ps) == 0 {
		return "none"
	}
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, "|")
}
