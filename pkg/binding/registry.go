package binding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

var (
	// ErrDuplicateKey is returned when a binding key is already registered.
	ErrDuplicateKey = errors.New("duplicate binding key")

	// ErrNotFound is returned when no binding exists for a key.
	ErrNotFound = errors.New("binding not found")
)

// Registry holds bindings in registration order. It is safe for
// concurrent use and implements lifecycle.Source, so an Engine can read
// observers from it directly.
type Registry struct {
	mu       sync.RWMutex
	bindings []*Binding
	byKey    map[string]*Binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[string]*Binding),
	}
}

// Add registers a binding. Keys must be unique.
func (r *Registry) Add(b *Binding) error {
	if b == nil {
		return errors.New("nil binding")
	}
	if b.Key() == "" {
		return errors.New("binding key is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[b.Key()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, b.Key())
	}
	r.bindings = append(r.bindings, b)
	r.byKey[b.Key()] = b
	return nil
}

// Remove deletes the binding for key, preserving the order of the rest.
// It reports whether a binding was removed.
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; !ok {
		return false
	}
	delete(r.byKey, key)
	for i, b := range r.bindings {
		if b.Key() == key {
			r.bindings = append(r.bindings[:i], r.bindings[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the binding for key.
func (r *Registry) Get(key string) (*Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return b, nil
}

// List returns all bindings in registration order.
func (r *Registry) List() []*Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// FindTagged returns bindings whose tags contain every key/value pair in
// want, in registration order. A nil or empty want matches everything.
func (r *Registry) FindTagged(want map[string]string) []*Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Binding
	for _, b := range r.bindings {
		if matchesTags(b.tags, want) {
			out = append(out, b)
		}
	}
	return out
}

func matchesTags(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// Observers returns the lifecycle registrations for every binding tagged
// as an observer, in registration order. Any truthy observer tag value
// counts; group membership is carried through on the tags.
func (r *Registry) Observers() []lifecycle.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []lifecycle.Registration
	for _, b := range r.bindings {
		if ok, _ := strconv.ParseBool(b.tags[lifecycle.TagObserver]); !ok {
			continue
		}
		b := b
		out = append(out, lifecycle.Registration{
			Key:  b.key,
			Tags: b.Tags(),
			Resolve: func(ctx context.Context) (any, error) {
				return b.Resolve(ctx)
			},
		})
	}
	return out
}

var _ lifecycle.Source = (*Registry)(nil)
