// Package build defines the typed representation of a build document and
// the flat actions produced by resolving one.
//
// The document side is a closed sum of node kinds: adding a new kind means
// adding a variant here and a dispatch arm in the resolver, checked at
// compile time by the exhaustive switch. The action side is what the
// executor consumes; an Action carries no conditionals and no unresolved
// templates.
package build

import (
	"github.com/vk/dotplan/internal/platform"
)

// Document is a fully loaded build document: an optional declared version
// and the ordered top-level nodes.
type Document struct {
	Version string
	Nodes   []Node
}

// Node is one tagged element of a build document. The interface is sealed;
// the variants below are the complete set.
type Node interface {
	// Kind returns the document tag of the node, used in error context.
	Kind() string
	isNode()
}

// Lifecycle names an executor phase a hook may attach to.
type Lifecycle string

const (
	LifecycleInstall   Lifecycle = "install"
	LifecycleUninstall Lifecycle = "uninstall"
)

// Binding is one name=value pair. Namespaces keep bindings as a slice to
// preserve declaration order.
type Binding struct {
	Name  string
	Value string
}

// Repository declares the companion file repository. Resolving it binds
// the repo.path / repo.url / dotfiles.path template builtins.
type Repository struct {
	Path string
	URL  string
}

// Namespace introduces bindings visible to itself and everything after it
// inside the enclosing block, shadowing identically named ancestor bindings.
type Namespace struct {
	Name   string
	Values []Binding
}

// MatrixColumn is one named value list of a matrix. All columns of a matrix
// must have equal length; row i is the i-th item of every column.
type MatrixColumn struct {
	Name  string
	Items []string
}

// Matrix re-resolves its children once per value row, with that row's
// values bound in a fresh scope.
type Matrix struct {
	Columns  []MatrixColumn
	Children []Node
}

// CaseBranch is one arm of a Case. A nil Condition is the default branch
// and always matches.
type CaseBranch struct {
	Condition platform.Condition
	Children  []Node
}

// Case resolves the children of the first branch whose condition matches
// the local descriptor, skipping every later branch.
type Case struct {
	Branches []CaseBranch
}

// Link declares a symlink from Source (the link to create) to Target (the
// file it points at). Both fields are templated.
type Link struct {
	Source string
	Target string
}

// Hook is a shell command bound to one or more lifecycle phases. Shell may
// be empty, leaving the interpreter choice to the executor.
type Hook struct {
	Shell   string
	Command string
	On      []Lifecycle
}

// Package declares a package to install. Managers optionally restricts
// which declared package managers may provide it; Aliases maps a manager
// name to the package's name under that manager.
type Package struct {
	Name     string
	Managers []string
	Aliases  map[string]string
}

// Manager declares a package manager by its shell command templates. The
// command fields keep their ${{ package.alias }} placeholder until a
// concrete package is executed against them.
type Manager struct {
	Name      string
	Bootstrap string
	Has       string
	Install   string
	Uninstall string
}

func (Repository) Kind() string { return "repo" }
func (Namespace) Kind() string  { return "namespace" }
func (Matrix) Kind() string     { return "matrix" }
func (Case) Kind() string       { return "case" }
func (Link) Kind() string       { return "link" }
func (Hook) Kind() string       { return "hook" }
func (Package) Kind() string    { return "package" }
func (Manager) Kind() string    { return "manager" }

func (Repository) isNode() {}
func (Namespace) isNode()  {}
func (Matrix) isNode()     {}
func (Case) isNode()       {}
func (Link) isNode()       {}
func (Hook) isNode()       {}
func (Package) isNode()    {}
func (Manager) isNode()    {}
