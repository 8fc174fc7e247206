package executor

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/vk/dotplan/internal/ctxlog"
)

// Runner abstracts process invocation so the executor can be tested
// without spawning shells.
type Runner interface {
	// Run executes command under the given shell and fails on a non-zero
	// exit. An empty shell selects the platform default.
	Run(ctx context.Context, shell, command string) error
	// Check executes command and reports whether it exited zero.
	Check(ctx context.Context, shell, command string) bool
	// Installed reports whether an executable with the given name is on
	// the PATH.
	Installed(name string) bool
}

// ShellRunner is the production Runner, shelling out with os/exec.
type ShellRunner struct{}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}

func shellCommand(ctx context.Context, shell, command string) *exec.Cmd {
	if shell == "" {
		shell = defaultShell()
	}
	flag := "-c"
	if shell == "cmd" {
		flag = "/C"
	}
	return exec.CommandContext(ctx, shell, flag, command)
}

func (ShellRunner) Run(ctx context.Context, shell, command string) error {
	ctxlog.FromContext(ctx).Debug("Running command.", "shell", shell, "command", command)
	out, err := shellCommand(ctx, shell, command).CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %q failed: %w: %s", command, err, out)
	}
	return nil
}

func (ShellRunner) Check(ctx context.Context, shell, command string) bool {
	return shellCommand(ctx, shell, command).Run() == nil
}

func (ShellRunner) Installed(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
