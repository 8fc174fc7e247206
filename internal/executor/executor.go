// Package executor consumes a resolved action sequence and performs the
// actual filesystem, shell, and package manager work. Actions run strictly
// sequentially in sequence order; a manager's bootstrap always precedes
// the installs that name it because the resolver emitted it earlier.
package executor

import (
	"context"
	"fmt"

	"github.com/vk/dotplan/internal/build"
	"github.com/vk/dotplan/internal/ctxlog"
	"github.com/vk/dotplan/internal/template"
)

// Executor applies action sequences. Clean allows replacing stale symlinks
// instead of failing on them.
type Executor struct {
	runner Runner
	clean  bool
}

// New returns an Executor using the given runner.
func New(runner Runner, clean bool) *Executor {
	return &Executor{runner: runner, clean: clean}
}

// Install applies every action in order, stopping at the first failure.
func (e *Executor) Install(ctx context.Context, actions []build.Action) error {
	return e.walk(ctx, actions, build.LifecycleInstall)
}

// Uninstall walks the sequence applying only its reversible parts: links
// are removed, uninstall-tagged hooks run, and packages are uninstalled
// through the manager that installed them.
func (e *Executor) Uninstall(ctx context.Context, actions []build.Action) error {
	return e.walk(ctx, actions, build.LifecycleUninstall)
}

func (e *Executor) walk(ctx context.Context, actions []build.Action, phase build.Lifecycle) error {
	logger := ctxlog.FromContext(ctx)
	// Managers become available as their bootstrap actions pass by.
	managers := map[string]build.Manager{}

	for _, action := range actions {
		var err error
		switch a := action.(type) {
		case build.EnsureRepo:
			if phase == build.LifecycleInstall {
				err = e.ensureRepo(ctx, a)
			}
		case build.CreateLink:
			if phase == build.LifecycleInstall {
				logger.Info("Linking.", "source", a.Source, "target", a.Target)
				err = createLink(a.Source, a.Target, e.clean)
			} else {
				logger.Info("Unlinking.", "source", a.Source)
				err = removeLink(a.Source, a.Target)
			}
		case build.RunHook:
			if hookApplies(a, phase) {
				logger.Info("Running hook.", "command", a.Command)
				err = e.runner.Run(ctx, a.Shell, a.Command)
			}
		case build.BootstrapManager:
			managers[a.Manager.Name] = a.Manager
			if phase == build.LifecycleInstall {
				err = e.bootstrap(ctx, a.Manager)
			}
		case build.InstallPackage:
			err = e.managePackage(ctx, managers, a, phase)
		default:
			err = fmt.Errorf("unhandled action %T", action)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func hookApplies(hook build.RunHook, phase build.Lifecycle) bool {
	for _, on := range hook.On {
		if on == phase {
			return true
		}
	}
	return false
}

// ensureRepo clones the repository when its path is absent. An existing
// path is trusted as-is; keeping it current is the operator's concern.
func (e *Executor) ensureRepo(ctx context.Context, repo build.EnsureRepo) error {
	if e.runner.Check(ctx, "", fmt.Sprintf("test -e %q", repo.Path)) {
		return nil
	}
	ctxlog.FromContext(ctx).Info("Cloning repository.", "url", repo.URL, "path", repo.Path)
	return e.runner.Run(ctx, "", fmt.Sprintf("git clone --recurse-submodules %q %q", repo.URL, repo.Path))
}

// bootstrap installs the package manager itself when its binary is absent.
func (e *Executor) bootstrap(ctx context.Context, manager build.Manager) error {
	if e.runner.Installed(manager.Name) {
		return nil
	}
	if manager.Bootstrap == "" {
		return fmt.Errorf("manager %s is not installed and declares no bootstrap command", manager.Name)
	}
	ctxlog.FromContext(ctx).Info("Bootstrapping manager.", "manager", manager.Name)
	return e.runner.Run(ctx, "", manager.Bootstrap)
}

func (e *Executor) managePackage(ctx context.Context, managers map[string]build.Manager, pkg build.InstallPackage, phase build.Lifecycle) error {
	manager, ok := managers[pkg.Manager]
	if !ok {
		return fmt.Errorf("package %s names manager %s, which was never bootstrapped", pkg.Name, pkg.Manager)
	}
	logger := ctxlog.FromContext(ctx)

	if phase == build.LifecycleUninstall {
		if manager.Uninstall == "" {
			return fmt.Errorf("manager %s declares no uninstall command", manager.Name)
		}
		command, err := renderManagerCommand(manager.Uninstall, pkg.Alias)
		if err != nil {
			return err
		}
		logger.Info("Uninstalling package.", "package", pkg.Name, "manager", manager.Name)
		return e.runner.Run(ctx, "", command)
	}

	if manager.Has != "" {
		command, err := renderManagerCommand(manager.Has, pkg.Alias)
		if err != nil {
			return err
		}
		if e.runner.Check(ctx, "", command) {
			logger.Debug("Package already installed.", "package", pkg.Name)
			return nil
		}
	}
	if manager.Install == "" {
		return fmt.Errorf("manager %s declares no install command", manager.Name)
	}
	command, err := renderManagerCommand(manager.Install, pkg.Alias)
	if err != nil {
		return err
	}
	logger.Info("Installing package.", "package", pkg.Name, "manager", manager.Name, "alias", pkg.Alias)
	return e.runner.Run(ctx, "", command)
}

// renderManagerCommand substitutes the package.alias builtin in a manager
// command template. It is the only reference a manager command may use.
func renderManagerCommand(command, alias string) (string, error) {
	return template.Render(command, func(namespace, variable string) (string, error) {
		if namespace == "package" && variable == "alias" {
			return alias, nil
		}
		return "", fmt.Errorf("manager command references unexpected variable %s.%s", namespace, variable)
	})
}
