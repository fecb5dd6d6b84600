//go:build unix

package ports

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// lockFileName is shared by every process allocating ports for embedded nodes.
// The kernel drops the flock when the descriptor closes, so an orphaned file is harmless.
const lockFileName = "embedded-cassandra-ports.lock"

type fileLock struct {
	file *os.File
}

// acquireFileLock blocks until the exclusive flock is held.
func acquireFileLock() (*fileLock, error) {
	path := lockFilePathWith(os.Getenv)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &fileLock{file: f}, nil
}

// Release unlocks and closes; repeated calls are no-ops.
func (l *fileLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

// lockFilePathWith prefers $XDG_RUNTIME_DIR and falls back to os.TempDir().
func lockFilePathWith(getenv func(string) string) string {
	dir := getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, lockFileName)
}
