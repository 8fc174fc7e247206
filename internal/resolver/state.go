package resolver

import (
	"fmt"
	"os"

	"github.com/vk/dotplan/internal/build"
	"github.com/vk/dotplan/internal/template"
	"github.com/vk/dotplan/internal/vars"
)

// state is the mutable context threaded through one resolution run. It is
// created per call to Resolve and discarded with the run; nothing here is
// shared across runs or goroutines.
type state struct {
	vars     *vars.Stack
	managers []build.Manager
	repo     *build.Repository
	home     string

	actions  []build.Action
	warnings []Warning
}

func newState(home string) *state {
	return &state{
		vars: vars.New(),
		home: home,
	}
}

// manager returns the declared manager with the given name, preserving the
// "available" set's declaration order through the backing slice.
func (st *state) manager(name string) (build.Manager, bool) {
	for _, m := range st.managers {
		if m.Name == name {
			return m, true
		}
	}
	return build.Manager{}, false
}

func (st *state) emit(action build.Action) {
	st.actions = append(st.actions, action)
}

// lookup resolves a dotted template reference: builtin scopes first, when
// bound, then the variable store. It is the template.LookupFunc for every
// render in the walk.
func (st *state) lookup(namespace, variable string) (string, error) {
	switch namespace {
	case "repo":
		if st.repo != nil {
			switch variable {
			case "path":
				return st.repo.Path, nil
			case "url":
				return st.repo.URL, nil
			}
		}
	case "dotfiles":
		if st.repo != nil && variable == "path" {
			return st.repo.Path, nil
		}
	case "env":
		if value, ok := os.LookupEnv(variable); ok {
			return value, nil
		}
		return "", fmt.Errorf("%w: environment variable %s", ErrUnresolvedVariable, variable)
	}
	name := namespace + "." + variable
	if value, ok := st.vars.Lookup(name); ok {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnresolvedVariable, name)
}

// render resolves placeholders in a plain string field.
func (st *state) render(input string) (string, error) {
	return template.Render(input, st.lookup)
}

// renderPath resolves placeholders in a path field and expands '~'.
func (st *state) renderPath(input string) (string, error) {
	return template.RenderPath(input, st.lookup, st.home)
}
