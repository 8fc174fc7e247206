package app

import (
	"errors"
	"fmt"

	"github.com/vk/dotplan/internal/platform"
)

// Version is the running resolver version, compared against a document's
// declared version before resolution.
const Version = "0.1.0"

// Commands the application can run.
const (
	CommandShow      = "show"
	CommandInstall   = "install"
	CommandUninstall = "uninstall"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DocumentPath string // .hcl build document file or directory
	Command      string

	LogFormat string
	LogLevel  string

	Strict bool // fail on document version mismatch
	Clean  bool // replace stale symlinks instead of failing

	Overrides platform.Overrides
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DocumentPath == "" {
		return nil, errors.New("DocumentPath is a required configuration field and cannot be empty")
	}
	switch cfg.Command {
	case CommandShow, CommandInstall, CommandUninstall:
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	return &cfg, nil
}
