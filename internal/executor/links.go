package executor

import (
	"fmt"
	"os"
	"path/filepath"
)

// createLink materialises a CreateLink action: the parent directory is
// created as needed and source becomes a symlink pointing at target. An
// existing correct link is a no-op; any other occupant of the source path
// fails unless clean is set, in which case a stale symlink is replaced.
func createLink(source, target string, clean bool) error {
	if current, err := os.Readlink(source); err == nil {
		if current == target {
			return nil
		}
		if !clean {
			return fmt.Errorf("link %s already points at %s", source, current)
		}
		if err := os.Remove(source); err != nil {
			return fmt.Errorf("failed to remove stale link %s: %w", source, err)
		}
	} else if _, statErr := os.Lstat(source); statErr == nil {
		return fmt.Errorf("link path %s exists and is not a symlink", source)
	}

	if dir := filepath.Dir(source); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create link directory %s: %w", dir, err)
		}
	}
	if err := os.Symlink(target, source); err != nil {
		return fmt.Errorf("failed to create link %s -> %s: %w", source, target, err)
	}
	return nil
}

// removeLink undoes a CreateLink action. Only a symlink pointing at the
// declared target is removed; anything else is left alone.
func removeLink(source, target string) error {
	current, err := os.Readlink(source)
	if err != nil {
		return nil
	}
	if current != target {
		return nil
	}
	if err := os.Remove(source); err != nil {
		return fmt.Errorf("failed to remove link %s: %w", source, err)
	}
	return nil
}
