// Package vars implements the resolver's variable store: a singly linked
// chain of lexical scopes. Containers push a scope on entry and pop it on
// exit (with defer, so an error deep in a block can never leak bindings
// into a sibling); namespace and matrix bindings are written into the
// current scope only. Ancestor scopes are never mutated, which is what
// makes shadowing reversible.
package vars

// Scope is one layer of the binding chain. It is returned by Push as the
// handle for the matching Pop.
type Scope struct {
	bindings map[string]string
	parent   *Scope
}

// Stack is the chain head. The zero value is not usable; use New.
type Stack struct {
	head *Scope
}

// New returns a Stack with a single root scope.
func New() *Stack {
	s := &Stack{}
	s.Push(nil)
	return s
}

// Push layers a new scope over the current chain and returns it. The
// bindings map is copied, so callers may reuse theirs.
func (s *Stack) Push(bindings map[string]string) *Scope {
	scope := &Scope{
		bindings: make(map[string]string, len(bindings)),
		parent:   s.head,
	}
	for name, value := range bindings {
		scope.bindings[name] = value
	}
	s.head = scope
	return scope
}

// Pop unwinds the chain back past the given scope. The handle must be on
// the current chain; popping an unknown scope is a programming error.
func (s *Stack) Pop(scope *Scope) {
	for cur := s.head; cur != nil; cur = cur.parent {
		if cur == scope {
			s.head = scope.parent
			return
		}
	}
	panic("vars: Pop called with a scope that is not on the stack")
}

// Set binds a name in the innermost scope, shadowing any ancestor binding
// of the same name for the lifetime of that scope.
func (s *Stack) Set(name, value string) {
	s.head.bindings[name] = value
}

// Lookup climbs the chain from innermost to outermost and returns the
// first binding found.
func (s *Stack) Lookup(name string) (string, bool) {
	for scope := s.head; scope != nil; scope = scope.parent {
		if value, ok := scope.bindings[name]; ok {
			return value, true
		}
	}
	return "", false
}
