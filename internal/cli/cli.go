package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vk/dotplan/internal/app"
	"github.com/vk/dotplan/internal/platform"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("dotplan", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
dotplan - resolve a declarative build document into provisioning actions.

Usage:
  dotplan [options] <command> [DOCUMENT_PATH]

Commands:
  show        Print the resolved action plan without executing it.
  install     Apply the plan: clone, link, run hooks, install packages.
  uninstall   Reverse the plan's links, hooks, and packages.

Arguments:
  DOCUMENT_PATH
    Path to a single .hcl build document or a directory of them.
    Falls back to the DOTPLAN_BUILD_FILE environment variable.

Options:
`)
		flagSet.PrintDefaults()
	}

	documentFlag := flagSet.String("document", "", "Path to the build document file or directory.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	strictFlag := flagSet.Bool("strict", false, "Fail when the document's declared version does not match.")
	cleanFlag := flagSet.Bool("clean", false, "Replace stale symlinks instead of failing on them.")
	platformFlag := flagSet.String("override-platform", "", "Override the detected platform family.")
	distroFlag := flagSet.String("override-distro", "", "Override the detected distribution.")
	hostnameFlag := flagSet.String("override-hostname", "", "Override the detected hostname.")
	archFlag := flagSet.String("override-arch", "", "Override the detected architecture.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	command := flagSet.Arg(0)

	path := *documentFlag
	if path == "" && flagSet.NArg() > 1 {
		path = flagSet.Arg(1)
	}
	if path == "" {
		path = os.Getenv("DOTPLAN_BUILD_FILE")
	}
	if path == "" {
		return nil, false, &ExitError{Code: 2, Message: "no build document specified"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		DocumentPath: path,
		Command:      command,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		Strict:       *strictFlag,
		Clean:        *cleanFlag,
		Overrides: platform.Overrides{
			Platform: *platformFlag,
			Distro:   *distroFlag,
			Hostname: *hostnameFlag,
			Arch:     *archFlag,
		},
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
