// Package lifecycle orders and drives start/stop notifications across a
// dynamic set of observers.
//
// # Overview
//
// Observers register in an external registry (see pkg/binding) and are
// partitioned into named groups. The Engine walks the start phase triad
// (preStart, start, postStart) over groups in configured order, and the
// stop triad (preStop, stop, postStop) over groups in reverse order.
// Phases are strictly sequential: a phase completes for every group before
// the next phase begins anywhere. Within a group, members run serially or
// fan out in parallel behind a join barrier, per the configured Mode.
//
// # Observers
//
// An observer implements any subset of the six hook interfaces (PreStarter,
// Starter, PostStarter, PreStopper, Stopper, PostStopper). The hook set is
// probed once per resolution and recorded as a PhaseSet; missing hooks are
// no-ops. A value providing no hooks at all is rejected when first resolved.
//
// # Groups
//
// Group membership comes from binding tags: an explicit TagGroup value, or
// a boolean tag named after a configured group. Entries with neither run
// first in the unnamed group; named groups absent from the configured order
// run after all configured groups in first-seen order. The order defaults
// to ["server"] and may be changed at any time with SetGroupOrder; Start
// and Stop consult the order in effect when they are called.
//
// # Usage
//
//	reg := binding.NewRegistry()
//	reg.Add(binding.NewObserver("db", openDB).Tag(lifecycle.TagGroup, "datasource"))
//	reg.Add(binding.NewObserver("rest", newServer).Tag("server", "true"))
//
//	engine, err := lifecycle.New(reg, lifecycle.Options{
//	    GroupOrder: []string{"datasource", "server"},
//	    Logger:     logger,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := engine.Start(ctx); err != nil {
//	    return err
//	}
//	defer engine.Stop(ctx)
//
// # Failure Semantics
//
// The first failing hook aborts the pass and surfaces as a *PhaseError
// naming the phase, group and observer key. In parallel groups, siblings
// already in flight run to completion before the first failure (in member
// order) is returned. Nothing is rolled back: a failed Start leaves earlier
// groups up, and the caller decides whether to Stop for cleanup.
//
// # Concurrency
//
// Engine is safe for concurrent use. The registry is read, never written,
// during a pass; registering observers while a pass is in flight is caller
// error. Hooks receive the caller's context and the engine starts no timers
// of its own, so timeout budgets belong to the caller.
package lifecycle
