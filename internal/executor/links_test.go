package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateLink_CreatesSymlinkAndParents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "dotfiles", ".zshrc")
	source := filepath.Join(dir, "deep", "nested", ".zshrc")

	require.NoError(t, createLink(source, target, false))

	got, err := os.Readlink(source)
	require.NoError(t, err)
	require.Equal(t, target, got)
}

func TestCreateLink_ExistingCorrectLinkIsNoOp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	source := filepath.Join(dir, "source")
	require.NoError(t, os.Symlink(target, source))

	require.NoError(t, createLink(source, target, false))
}

func TestCreateLink_StaleLinkFailsWithoutClean(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	require.NoError(t, os.Symlink(filepath.Join(dir, "old"), source))

	err := createLink(source, filepath.Join(dir, "new"), false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already points at")
}

func TestCreateLink_CleanReplacesStaleLink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	target := filepath.Join(dir, "new")
	require.NoError(t, os.Symlink(filepath.Join(dir, "old"), source))

	require.NoError(t, createLink(source, target, true))

	got, err := os.Readlink(source)
	require.NoError(t, err)
	require.Equal(t, target, got)
}

func TestCreateLink_RegularFileOccupantFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	require.NoError(t, os.WriteFile(source, []byte("precious"), 0o644))

	err := createLink(source, filepath.Join(dir, "target"), true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a symlink")

	data, readErr := os.ReadFile(source)
	require.NoError(t, readErr)
	require.Equal(t, "precious", string(data))
}

func TestRemoveLink_RemovesMatchingLink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	target := filepath.Join(dir, "target")
	require.NoError(t, os.Symlink(target, source))

	require.NoError(t, removeLink(source, target))

	_, err := os.Lstat(source)
	require.True(t, os.IsNotExist(err))
}

func TestRemoveLink_LeavesForeignOccupantsAlone(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// A link pointing elsewhere stays.
	diverted := filepath.Join(dir, "diverted")
	require.NoError(t, os.Symlink(filepath.Join(dir, "other"), diverted))
	require.NoError(t, removeLink(diverted, filepath.Join(dir, "target")))
	_, err := os.Lstat(diverted)
	require.NoError(t, err)

	// A regular file stays.
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("keep"), 0o644))
	require.NoError(t, removeLink(file, filepath.Join(dir, "target")))
	_, err = os.Stat(file)
	require.NoError(t, err)

	// A missing path is fine.
	require.NoError(t, removeLink(filepath.Join(dir, "absent"), "anything"))
}
