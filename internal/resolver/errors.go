package resolver

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every fatal resolution error wraps one of these,
// so callers can branch with errors.Is while still seeing node context in
// the message.
var (
	ErrUnresolvedVariable = errors.New("unresolved variable")
	ErrNoMatchingBranch   = errors.New("no branch matched and no default branch given")
	ErrMalformedCondition = errors.New("malformed condition")
	ErrEmptyCase          = errors.New("case has no branches")
	ErrMatrixShape        = errors.New("matrix columns have mismatched lengths")
	ErrRepoConflict       = errors.New("repository redeclared with different values")
)

// Error is the fatal resolution error handed to the caller. It names the
// node kind and field being resolved when the walk aborted.
type Error struct {
	Node  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("resolving %s: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("resolving %s %s: %v", e.Node, e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// fatal wraps err with node context unless it already carries some.
func fatal(node, field string, err error) error {
	var resolveErr *Error
	if errors.As(err, &resolveErr) {
		return err
	}
	return &Error{Node: node, Field: field, Err: err}
}
