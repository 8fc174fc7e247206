// Package template renders the ${{ namespace.variable }} placeholder
// syntax embedded in build document strings.
//
// The grammar is deliberately tiny: one placeholder form carrying a single
// dotted path, no expressions, no nesting, no defaults. Where the path
// resolves is the caller's concern; the engine only parses and substitutes.
// A string without placeholders renders to itself.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Matches "${{ anything here }}".
	reOuter = regexp.MustCompile(`\$\{\{([^{}]*)\}\}`)
	// Matches "namespace.variable" inside the braces.
	reInner = regexp.MustCompile(`^\s*([a-zA-Z_][a-zA-Z_0-9]*)\.([a-zA-Z_][a-zA-Z_0-9]*)\s*$`)
)

// LookupFunc resolves one dotted reference. Returning an error aborts the
// render; there is no partial substitution.
type LookupFunc func(namespace, variable string) (string, error)

// Render substitutes every placeholder in input using lookup.
func Render(input string, lookup LookupFunc) (string, error) {
	matches := reOuter.FindAllStringSubmatchIndex(input, -1)
	if matches == nil {
		return input, nil
	}

	var out strings.Builder
	last := 0
	for _, m := range matches {
		inner := input[m[2]:m[3]]
		path := reInner.FindStringSubmatch(inner)
		if path == nil {
			return "", fmt.Errorf("invalid substitution %q", strings.TrimSpace(inner))
		}
		value, err := lookup(path[1], path[2])
		if err != nil {
			return "", err
		}
		out.WriteString(input[last:m[0]])
		out.WriteString(value)
		last = m[1]
	}
	out.WriteString(input[last:])
	return out.String(), nil
}

// RenderPath renders input and then expands '~' to the given home
// directory, matching how the original documents spell user paths.
func RenderPath(input string, lookup LookupFunc, home string) (string, error) {
	rendered, err := Render(input, lookup)
	if err != nil {
		return "", err
	}
	if home == "" {
		return rendered, nil
	}
	return strings.ReplaceAll(rendered, "~", home), nil
}
