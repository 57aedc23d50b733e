package lifecycle

import "context"

// Pass operations.
const (
	OpStart = "start"
	OpStop  = "stop"
)

type passKey struct{}

// passInfo carries per-pass metadata from the engine to the notifier
// through the context, keeping Notify's signature free of it.
type passInfo struct {
	runID string
	op    string
}

func withPass(ctx context.Context, p passInfo) context.Context {
	return context.WithValue(ctx, passKey{}, p)
}

func passFromContext(ctx context.Context) passInfo {
	if p, ok := ctx.Value(passKey{}).(passInfo); ok {
		return p
	}
	return passInfo{}
}

// RunIDFromContext returns the run ID of the pass driving ctx, or "" when
// ctx is not inside a pass. Hooks can use it to correlate their own logs
// and events with the engine's.
func RunIDFromContext(ctx context.Context) string {
	return passFromContext(ctx).runID
}
