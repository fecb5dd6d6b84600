package distribution

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

func fakeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin", "cassandra"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "cassandra.yaml"), []byte("cluster_name: x\n"), 0o644))
	return root
}

func TestDirectoryGet(t *testing.T) {
	t.Parallel()

	root := fakeTree(t)
	v := version.MustParse("4.1.3")
	d, err := Directory{Path: root, Platform: models.PlatformUnix}.Get(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, root, d.Root)
	assert.True(t, d.Version.Equal(v))
	assert.Equal(t, filepath.Join("bin", "cassandra"), d.LaunchScript)

	_, err = Directory{Path: root, Platform: models.PlatformWindows}.Get(context.Background(), v)
	assert.True(t, errors.Is(err, ErrLaunchScriptMissing))
}

func TestCommand(t *testing.T) {
	t.Parallel()

	unix := Distribution{Platform: models.PlatformUnix, LaunchScript: LaunchScriptFor(models.PlatformUnix)}
	cmd, args := unix.Command("/work", false)
	assert.Equal(t, filepath.Join("/work", "bin", "cassandra"), cmd)
	assert.Equal(t, []string{"-f"}, args)
	_, args = unix.Command("/work", true)
	assert.Equal(t, []string{"-f", "-R"}, args)

	win := Distribution{Platform: models.PlatformWindows, LaunchScript: LaunchScriptFor(models.PlatformWindows)}
	cmd, args = win.Command("C:/work", false)
	assert.Equal(t, "powershell", cmd)
	assert.Equal(t, []string{"-ExecutionPolicy", "Unrestricted", "-File", filepath.Join("C:/work", "bin", "cassandra.ps1"), "-f"}, args)
}

func TestPrepareCopiesTreeWithModes(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("unix file modes")
	}

	root := fakeTree(t)
	d, err := Directory{Path: root, Platform: models.PlatformUnix}.Get(context.Background(), version.MustParse("4.0"))
	require.NoError(t, err)

	work := filepath.Join(t.TempDir(), "run", "node-1")
	require.NoError(t, Prepare(context.Background(), d, work))

	info, err := os.Stat(filepath.Join(work, "bin", "cassandra"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	data, err := os.ReadFile(filepath.Join(work, "conf", "cassandra.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "cluster_name: x\n", string(data))

	// the source tree is untouched by later rewrites
	require.NoError(t, os.WriteFile(filepath.Join(work, "conf", "cassandra.yaml"), []byte("changed"), 0o644))
	data, err = os.ReadFile(filepath.Join(root, "conf", "cassandra.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "cluster_name: x\n", string(data))

	assert.Error(t, Prepare(context.Background(), d, work))
}
