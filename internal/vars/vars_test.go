package vars

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStack_SetAndLookup(t *testing.T) {
	t.Parallel()

	s := New()
	s.Set("ns.a", "1")

	value, ok := s.Lookup("ns.a")
	require.True(t, ok)
	require.Equal(t, "1", value)

	_, ok = s.Lookup("ns.b")
	require.False(t, ok)
}

func TestStack_InnerScopeShadowsOuter(t *testing.T) {
	t.Parallel()

	s := New()
	s.Set("matrix.name", "outer")

	scope := s.Push(map[string]string{"matrix.name": "inner"})
	value, ok := s.Lookup("matrix.name")
	require.True(t, ok)
	require.Equal(t, "inner", value)

	s.Pop(scope)
	value, ok = s.Lookup("matrix.name")
	require.True(t, ok)
	require.Equal(t, "outer", value)
}

func TestStack_PopDropsScopeBindings(t *testing.T) {
	t.Parallel()

	s := New()
	scope := s.Push(nil)
	s.Set("inner.x", "1")

	s.Pop(scope)
	_, ok := s.Lookup("inner.x")
	require.False(t, ok)
}

func TestStack_OuterLookupThroughInnerScope(t *testing.T) {
	t.Parallel()

	s := New()
	s.Set("ns.a", "1")
	scope := s.Push(nil)
	defer s.Pop(scope)

	value, ok := s.Lookup("ns.a")
	require.True(t, ok)
	require.Equal(t, "1", value)
}

func TestStack_PushCopiesBindings(t *testing.T) {
	t.Parallel()

	bindings := map[string]string{"matrix.name": "a"}
	s := New()
	s.Push(bindings)
	bindings["matrix.name"] = "mutated"

	value, _ := s.Lookup("matrix.name")
	require.Equal(t, "a", value)
}

func TestStack_PopUnwindsPastNestedScopes(t *testing.T) {
	t.Parallel()

	s := New()
	outer := s.Push(map[string]string{"a.a": "1"})
	s.Push(map[string]string{"b.b": "2"})

	// Popping the outer handle discards everything above it too, which is
	// what keeps defer-based unwinding safe when an error skips inner pops.
	s.Pop(outer)
	_, ok := s.Lookup("a.a")
	require.False(t, ok)
	_, ok = s.Lookup("b.b")
	require.False(t, ok)
}

func TestStack_PopForeignScopePanics(t *testing.T) {
	t.Parallel()

	s := New()
	other := New().Push(nil)
	require.Panics(t, func() { s.Pop(other) })
}
