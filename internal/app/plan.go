package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/vk/dotplan/internal/build"
	"github.com/vk/dotplan/internal/resolver"
)

// printPlan writes the resolved action sequence and its warnings in a
// stable, human-readable form. The output order is the execution order.
func printPlan(w io.Writer, result *resolver.Result) {
	for _, action := range result.Actions {
		fmt.Fprintln(w, formatAction(action))
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func formatAction(action build.Action) string {
	switch a := action.(type) {
	case build.EnsureRepo:
		return fmt.Sprintf("repo      %s <- %s", a.Path, a.URL)
	case build.CreateLink:
		return fmt.Sprintf("link      %s -> %s", a.Source, a.Target)
	case build.RunHook:
		phases := make([]string, len(a.On))
		for i, on := range a.On {
			phases[i] = string(on)
		}
		return fmt.Sprintf("hook      [%s] %s", strings.Join(phases, ","), a.Command)
	case build.BootstrapManager:
		return fmt.Sprintf("bootstrap %s", a.Manager.Name)
	case build.InstallPackage:
		if a.Alias != a.Name {
			return fmt.Sprintf("install   %s (%s via %s)", a.Name, a.Alias, a.Manager)
		}
		return fmt.Sprintf("install   %s (via %s)", a.Name, a.Manager)
	}
	return fmt.Sprintf("unknown   %T", action)
}
