// Package binding is the registry the lifecycle engine reads observers
// from: tagged bindings with lazy, scoped resolution. The registry is
// owned by whoever constructs it, typically the daemon main; the engine
// only borrows a read view of it.
package binding

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

// Scope controls how often a binding's provider runs.
type Scope int

const (
	// Singleton caches the first resolved instance for the life of the
	// binding.
	Singleton Scope = iota

	// Transient runs the provider on every resolution.
	Transient
)

func (s Scope) String() string {
	if s == Transient {
		return "transient"
	}
	return "singleton"
}

// Provider builds a binding's instance.
type Provider func(ctx context.Context) (any, error)

// Binding associates a key with tags and a scoped provider. Build it with
// the chainable Tag/InGroup/In calls, then hand it to a Registry; bindings
// are not meant to be reconfigured after registration.
type Binding struct {
	key      string
	tags     map[string]string
	provider Provider
	scope    Scope

	mu       sync.Mutex
	instance any
	resolved bool
}

// New creates a singleton-scoped binding.
func New(key string, provider Provider) *Binding {
	return &Binding{
		key:      key,
		tags:     make(map[string]string),
		provider: provider,
		scope:    Singleton,
	}
}

// NewInstance binds an already constructed value.
func NewInstance(key string, v any) *Binding {
	return New(key, func(context.Context) (any, error) { return v, nil })
}

// NewObserver creates a binding carrying the lifecycle observer tag, the
// explicit declaration the engine discovers participants by.
func NewObserver(key string, provider Provider) *Binding {
	return New(key, provider).AsObserver()
}

// NewObserverInstance binds an already constructed observer.
func NewObserverInstance(key string, v any) *Binding {
	return NewInstance(key, v).AsObserver()
}

// Tag sets a tag and returns the binding for chaining.
func (b *Binding) Tag(key, value string) *Binding {
	b.tags[key] = value
	return b
}

// AsObserver marks the binding as a lifecycle participant.
func (b *Binding) AsObserver() *Binding {
	return b.Tag(lifecycle.TagObserver, "true")
}

// InGroup assigns the binding's lifecycle group explicitly.
func (b *Binding) InGroup(name string) *Binding {
	return b.Tag(lifecycle.TagGroup, name)
}

// In sets the binding's scope.
func (b *Binding) In(scope Scope) *Binding {
	b.scope = scope
	return b
}

// Key returns the binding's identity key.
func (b *Binding) Key() string {
	return b.key
}

// Tags returns a copy of the binding's tags.
func (b *Binding) Tags() map[string]string {
	out := make(map[string]string, len(b.tags))
	for k, v := range b.tags {
		out[k] = v
	}
	return out
}

// Scope returns the binding's scope.
func (b *Binding) Scope() Scope {
	return b.scope
}

// Resolve returns the binding's instance, running the provider if the
// scope requires it. Singleton failures are not cached; a later Resolve
// retries the provider.
func (b *Binding) Resolve(ctx context.Context) (any, error) {
	if b.scope == Transient {
		return b.provide(ctx)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolved {
		return b.instance, nil
	}
	v, err := b.provide(ctx)
	if err != nil {
		return nil, err
	}
	b.instance = v
	b.resolved = true
	return v, nil
}

func (b *Binding) provide(ctx context.Context) (any, error) {
	if b.provider == nil {
		return nil, fmt.Errorf("binding %q has no provider", b.key)
	}
	v, err := b.provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("provider for %q: %w", b.key, err)
	}
	if v == nil {
		return nil, fmt.Errorf("provider for %q returned nil", b.key)
	}
	return v, nil
}
