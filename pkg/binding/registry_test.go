package binding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lifecycled/pkg/lifecycle"
)

func addAll(t *testing.T, r *Registry, bindings ...*Binding) {
	t.Helper()
	for _, b := range bindings {
		require.NoError(t, r.Add(b))
	}
}

func keysOf(bindings []*Binding) []string {
	out := make([]string, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, b.Key())
	}
	return out
}

func TestRegistry_AddRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(NewInstance("db", "first")))

	err := r.Add(NewInstance("db", "second"))
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_AddRejectsNilAndEmptyKey(t *testing.T) {
	r := NewRegistry()
	require.Error(t, r.Add(nil))
	require.Error(t, r.Add(NewInstance("", "v")))
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	addAll(t, r,
		NewInstance("c", 1),
		NewInstance("a", 2),
		NewInstance("b", 3),
	)

	assert.Equal(t, []string{"c", "a", "b"}, keysOf(r.List()))
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	addAll(t, r, NewInstance("db", "value"))

	b, err := r.Get("db")
	require.NoError(t, err)
	assert.Equal(t, "db", b.Key())

	_, err = r.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_RemoveKeepsOrder(t *testing.T) {
	r := NewRegistry()
	addAll(t, r,
		NewInstance("a", 1),
		NewInstance("b", 2),
		NewInstance("c", 3),
	)

	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, keysOf(r.List()))

	_, err := r.Get("b")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_FindTaggedMatchesAllPairs(t *testing.T) {
	r := NewRegistry()
	addAll(t, r,
		NewInstance("mysql", 1).Tag("kind", "db").Tag("tier", "hot"),
		NewInstance("mongo", 2).Tag("kind", "db").Tag("tier", "cold"),
		NewInstance("rest", 3).Tag("kind", "server"),
	)

	dbs := r.FindTagged(map[string]string{"kind": "db"})
	assert.Equal(t, []string{"mysql", "mongo"}, keysOf(dbs))

	hot := r.FindTagged(map[string]string{"kind": "db", "tier": "hot"})
	assert.Equal(t, []string{"mysql"}, keysOf(hot))

	none := r.FindTagged(map[string]string{"kind": "db", "tier": "warm"})
	assert.Empty(t, none)

	all := r.FindTagged(nil)
	assert.Len(t, all, 3)
}

func TestRegistry_ObserversFiltersByTag(t *testing.T) {
	r := NewRegistry()
	addAll(t, r,
		NewObserverInstance("db", "database").InGroup("datasource"),
		NewInstance("helper", "not an observer"),
		NewInstance("srv", "server").Tag(lifecycle.TagObserver, "1").InGroup(lifecycle.GroupServer),
		NewInstance("off", "opted out").Tag(lifecycle.TagObserver, "false"),
	)

	regs := r.Observers()
	require.Len(t, regs, 2)
	assert.Equal(t, "db", regs[0].Key)
	assert.Equal(t, "datasource", regs[0].Tags[lifecycle.TagGroup])
	assert.Equal(t, "srv", regs[1].Key)
}

func TestRegistry_ObserverRegistrationResolvesBinding(t *testing.T) {
	r := NewRegistry()
	calls := 0
	b := NewObserver("db", func(context.Context) (any, error) {
		calls++
		return "database", nil
	})
	addAll(t, r, b)

	regs := r.Observers()
	require.Len(t, regs, 1)

	v, err := regs[0].Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "database", v)

	// Singleton scope holds across the Source view.
	v2, err := regs[0].Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, v, v2)
	assert.Equal(t, 1, calls)
}

func TestRegistry_AsEngineSource(t *testing.T) {
	rec := make([]string, 0, 4)
	hooks := func(key string) *lifecycle.ObserverFuncs {
		return &lifecycle.ObserverFuncs{
			OnStart: func(context.Context) error {
				rec = append(rec, "start-"+key)
				return nil
			},
			OnStop: func(context.Context) error {
				rec = append(rec, "stop-"+key)
				return nil
			},
		}
	}

	r := NewRegistry()
	addAll(t, r,
		NewObserverInstance("db", hooks("db")).InGroup("datasource"),
		NewObserverInstance("api", hooks("api")).InGroup(lifecycle.GroupServer),
	)

	eng, err := lifecycle.New(r, lifecycle.Options{
		GroupOrder: []string{"datasource", lifecycle.GroupServer},
	})
	require.NoError(t, err)

	require.NoError(t, eng.Start(context.Background()))
	require.NoError(t, eng.Stop(context.Background()))

	assert.Equal(t, []string{"start-db", "start-api", "stop-api", "stop-db"}, rec)
}
