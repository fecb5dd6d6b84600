//go:build unix

package ports

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockFilePathPrefersRuntimeDir(t *testing.T) {
	t.Parallel()

	got := lockFilePathWith(func(key string) string {
		if key == "XDG_RUNTIME_DIR" {
			return "/run/user/1000"
		}
		return ""
	})
	assert.Equal(t, filepath.Join("/run/user/1000", lockFileName), got)
}

func TestFileLockAcquireRelease(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	l, err := acquireFileLock()
	require.NoError(t, err)
	l.Release()
	l.Release()

	again, err := acquireFileLock()
	require.NoError(t, err)
	again.Release()
}
