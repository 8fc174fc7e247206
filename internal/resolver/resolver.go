// Package resolver turns a typed build document into a flat, ordered
// action sequence for the local machine.
//
// The walk is a plain pre-order, left-to-right tree recursion. Containers
// (namespace scopes, matrix rows, the selected case branch) push a variable
// scope on entry and pop it with defer, so bindings can never outlive their
// block, error or not. Terminal nodes render their templated fields and
// append actions. The first fatal condition aborts the whole run: a partial
// action sequence would be an inconsistent plan, since later actions depend
// on earlier ones.
package resolver

import (
	"context"
	"fmt"

	"github.com/vk/dotplan/internal/build"
	"github.com/vk/dotplan/internal/ctxlog"
	"github.com/vk/dotplan/internal/platform"
)

// Warning records a non-fatal skip observed during resolution.
type Warning struct {
	Package string
	Detail  string
}

func (w Warning) String() string {
	return fmt.Sprintf("package %q skipped: %s", w.Package, w.Detail)
}

// Result is a successful resolution: the complete ordered action sequence
// plus any skip warnings accumulated along the way.
type Result struct {
	Actions  []build.Action
	Warnings []Warning
}

// Resolver resolves documents against one local environment descriptor.
// It is stateless across calls; each Resolve owns its run state.
type Resolver struct {
	descriptor platform.Descriptor
	home       string
}

// New returns a Resolver for the given descriptor. home, when non-empty,
// is used to expand '~' in path fields.
func New(descriptor platform.Descriptor, home string) *Resolver {
	return &Resolver{descriptor: descriptor, home: home}
}

// Resolve walks the document and returns the action sequence, or the first
// fatal error with no partial result.
func (r *Resolver) Resolve(ctx context.Context, doc *build.Document) (*Result, error) {
	st := newState(r.home)
	if err := r.walkBlock(ctx, st, doc.Nodes); err != nil {
		return nil, err
	}
	return &Result{Actions: st.actions, Warnings: st.warnings}, nil
}

// walkBlock resolves a sibling list inside its own scope, so namespace
// bindings declared here vanish when the block is left.
func (r *Resolver) walkBlock(ctx context.Context, st *state, nodes []build.Node) error {
	scope := st.vars.Push(nil)
	defer st.vars.Pop(scope)

	for _, node := range nodes {
		if err := r.resolveNode(ctx, st, node); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveNode(ctx context.Context, st *state, node build.Node) error {
	switch n := node.(type) {
	case build.Repository:
		return r.resolveRepository(st, n)
	case build.Namespace:
		return r.resolveNamespace(st, n)
	case build.Matrix:
		return r.resolveMatrix(ctx, st, n)
	case build.Case:
		return r.resolveCase(ctx, st, n)
	case build.Link:
		return r.resolveLink(st, n)
	case build.Hook:
		return r.resolveHook(st, n)
	case build.Package:
		return r.resolvePackage(ctx, st, n)
	case build.Manager:
		return r.resolveManager(st, n)
	default:
		return fatal(node.Kind(), "", fmt.Errorf("unhandled node kind"))
	}
}

func (r *Resolver) resolveRepository(st *state, n build.Repository) error {
	path, err := st.renderPath(n.Path)
	if err != nil {
		return fatal(n.Kind(), "path", err)
	}
	url, err := st.render(n.URL)
	if err != nil {
		return fatal(n.Kind(), "url", err)
	}
	resolved := build.Repository{Path: path, URL: url}
	if st.repo != nil {
		if *st.repo == resolved {
			return nil
		}
		return fatal(n.Kind(), "", fmt.Errorf("%w: %q vs %q", ErrRepoConflict, st.repo.Path, path))
	}
	st.repo = &resolved
	st.emit(build.EnsureRepo{Path: path, URL: url})
	return nil
}

func (r *Resolver) resolveNamespace(st *state, n build.Namespace) error {
	for _, binding := range n.Values {
		value, err := st.render(binding.Value)
		if err != nil {
			return fatal(n.Kind(), binding.Name, err)
		}
		st.vars.Set(n.Name+"."+binding.Name, value)
	}
	return nil
}

func (r *Resolver) resolveMatrix(ctx context.Context, st *state, n build.Matrix) error {
	rows, err := matrixRows(n)
	if err != nil {
		return fatal(n.Kind(), "values", err)
	}
	for i := 0; i < rows; i++ {
		if err := r.resolveMatrixRow(ctx, st, n, i); err != nil {
			return err
		}
	}
	return nil
}

// resolveMatrixRow walks the matrix children once with row i's values in a
// fresh scope. Row values are rendered in the enclosing scope, so an outer
// matrix's bindings are visible inside an inner matrix's value lists.
func (r *Resolver) resolveMatrixRow(ctx context.Context, st *state, n build.Matrix, row int) error {
	bindings := make(map[string]string, len(n.Columns))
	for _, col := range n.Columns {
		value, err := st.render(col.Items[row])
		if err != nil {
			return fatal(n.Kind(), col.Name, err)
		}
		bindings["matrix."+col.Name] = value
	}

	scope := st.vars.Push(bindings)
	defer st.vars.Pop(scope)
	return r.walkBlock(ctx, st, n.Children)
}

// matrixRows validates column lengths and returns the row count. A matrix
// without columns has zero rows, which is not an error.
func matrixRows(n build.Matrix) (int, error) {
	if len(n.Columns) == 0 {
		return 0, nil
	}
	rows := len(n.Columns[0].Items)
	for _, col := range n.Columns[1:] {
		if len(col.Items) != rows {
			return 0, fmt.Errorf("%w: %q has %d, %q has %d",
				ErrMatrixShape, n.Columns[0].Name, rows, col.Name, len(col.Items))
		}
	}
	return rows, nil
}

// resolveCase walks the first branch whose condition matches the local
// descriptor. Later branches are never evaluated once one has matched; a
// nil condition is the default branch and always matches.
func (r *Resolver) resolveCase(ctx context.Context, st *state, n build.Case) error {
	if len(n.Branches) == 0 {
		return fatal(n.Kind(), "", ErrEmptyCase)
	}
	for _, branch := range n.Branches {
		if branch.Condition != nil {
			ok, err := branch.Condition.Matches(r.descriptor)
			if err != nil {
				return fatal(n.Kind(), "condition", fmt.Errorf("%w: %v", ErrMalformedCondition, err))
			}
			if !ok {
				continue
			}
		}
		return r.walkBlock(ctx, st, branch.Children)
	}
	return fatal(n.Kind(), "", ErrNoMatchingBranch)
}

func (r *Resolver) resolveLink(st *state, n build.Link) error {
	source, err := st.renderPath(n.Source)
	if err != nil {
		return fatal(n.Kind(), "source", err)
	}
	target, err := st.renderPath(n.Target)
	if err != nil {
		return fatal(n.Kind(), "target", err)
	}
	st.emit(build.CreateLink{Source: source, Target: target})
	return nil
}

func (r *Resolver) resolveHook(st *state, n build.Hook) error {
	command, err := st.render(n.Command)
	if err != nil {
		return fatal(n.Kind(), "command", err)
	}
	st.emit(build.RunHook{Shell: n.Shell, Command: command, On: n.On})
	return nil
}

// resolveManager adds the manager to the ordered available set and emits
// its bootstrap action. Redeclaring a name is idempotent; the original
// declaration wins.
func (r *Resolver) resolveManager(st *state, n build.Manager) error {
	if _, exists := st.manager(n.Name); exists {
		return nil
	}
	st.managers = append(st.managers, n)
	st.emit(build.BootstrapManager{Manager: n})
	return nil
}

// resolvePackage selects the first available manager, in declaration
// order, that the package's restriction list admits. A package no manager
// can provide is skipped with a warning, never a fatal error.
func (r *Resolver) resolvePackage(ctx context.Context, st *state, n build.Package) error {
	name, err := st.render(n.Name)
	if err != nil {
		return fatal(n.Kind(), "name", err)
	}

	for _, m := range st.managers {
		if len(n.Managers) > 0 && !contains(n.Managers, m.Name) {
			continue
		}
		alias := name
		if a, ok := n.Aliases[m.Name]; ok {
			alias = a
		}
		st.emit(build.InstallPackage{Name: name, Manager: m.Name, Alias: alias})
		return nil
	}

	warning := Warning{Package: name, Detail: "no eligible package manager available"}
	st.warnings = append(st.warnings, warning)
	ctxlog.FromContext(ctx).Warn("Package has no eligible manager, skipping.",
		"package", name, "restriction", n.Managers)
	return nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
