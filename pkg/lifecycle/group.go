package lifecycle

import (
	"context"
	"sort"
	"strconv"
)

// Binding tags the engine understands. The observer tag marks a binding as
// a lifecycle participant; the group tag names its group explicitly.
const (
	TagObserver = "lifecycle.observer"
	TagGroup    = "lifecycle.group"
)

// GroupServer is the default group for HTTP/RPC servers, and the single
// member of the default group order. Servers start last and stop first so
// they never accept traffic while their dependencies are down.
const GroupServer = "server"

// DefaultGroupOrder returns the order used when none is configured.
func DefaultGroupOrder() []string {
	return []string{GroupServer}
}

// Registration is one registry entry as the engine sees it: an identity
// key, the binding's tags, and a resolver for the instance. Resolve is
// called at most once per pass; singleton or transient caching across
// passes is the registry's policy.
type Registration struct {
	Key     string
	Tags    map[string]string
	Resolve func(ctx context.Context) (any, error)
}

// Source is the registry collaborator the engine reads observers from.
// Observers returns the registered entries in registration order; the
// engine re-queries it on every pass and never mutates it.
type Source interface {
	Observers() []Registration
}

// Group is a named bucket of registrations sharing a group tag. Members
// keep registration order.
type Group struct {
	Name    string
	Members []Registration
}

// GroupOf derives the group of an entry from its tags: an explicit TagGroup
// value wins; otherwise the first configured order name the entry carries
// as a boolean-style tag; otherwise the unnamed group.
func GroupOf(tags map[string]string, order []string) string {
	if g, ok := tags[TagGroup]; ok && g != "" {
		return g
	}
	for _, name := range order {
		if v, ok := tags[name]; ok {
			if b, err := strconv.ParseBool(v); err == nil && b {
				return name
			}
		}
	}
	return ""
}

// ComputeGroups partitions entries into groups and orders the groups:
// the unnamed group first, then configured groups by their position in
// order, then named groups absent from order in first-seen order. It is
// pure and re-derives from scratch on every call, so registry changes are
// picked up without invalidation.
func ComputeGroups(entries []Registration, order []string) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0, len(order)+1)
	for _, e := range entries {
		name := GroupOf(e.Tags, order)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Members = append(groups[i].Members, e)
	}

	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	pos := func(name string) int {
		if name == "" {
			return -1
		}
		if i, ok := rank[name]; ok {
			return i
		}
		return len(order)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return pos(groups[i].Name) < pos(groups[j].Name)
	})
	return groups
}
