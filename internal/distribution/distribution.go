package distribution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// Distribution is an extracted server tree ready to be copied and launched.
type Distribution struct {
	Root         string
	Version      version.Version
	Platform     models.Platform
	LaunchScript string
}

// Provider resolves a distribution for a version. Download and caching are
// outside this module; a Provider only hands back a tree on disk.
type Provider interface {
	Get(ctx context.Context, v version.Version) (Distribution, error)
}

var ErrLaunchScriptMissing = errors.New("launch script not found")

// LaunchScriptFor is bin/cassandra on Unix and bin/cassandra.ps1 on Windows.
func LaunchScriptFor(p models.Platform) string {
	if p == models.PlatformWindows {
		return filepath.Join("bin", "cassandra.ps1")
	}
	return filepath.Join("bin", "cassandra")
}

// Directory serves an already extracted tree.
type Directory struct {
	Path     string
	Platform models.Platform
}

func (d Directory) Get(ctx context.Context, v version.Version) (Distribution, error) {
	if err := ctx.Err(); err != nil {
		return Distribution{}, err
	}
	platform := d.Platform
	if platform == "" {
		platform = models.CurrentPlatform()
	}
	root, err := filepath.Abs(d.Path)
	if err != nil {
		return Distribution{}, err
	}
	script := LaunchScriptFor(platform)
	info, err := os.Stat(filepath.Join(root, script))
	if err != nil {
		return Distribution{}, fmt.Errorf("%w: %s: %v", ErrLaunchScriptMissing, filepath.Join(root, script), err)
	}
	if info.IsDir() {
		return Distribution{}, fmt.Errorf("%w: %s is a directory", ErrLaunchScriptMissing, script)
	}
	return Distribution{Root: root, Version: v, Platform: platform, LaunchScript: script}, nil
}

/**
 * Build the command that runs the server in the foreground
 * @param {string} workDir - Runtime directory the script is launched from
 * @param {bool} privileged - Whether the current user is root
 * @returns {string} command
 * @returns {[]string} args
 * @description
 * - Unix: bin/cassandra -f, plus -R when running as root
 * - Windows: powershell -ExecutionPolicy Unrestricted -File bin/cassandra.ps1 -f
 */
func (d Distribution) Command(workDir string, privileged bool) (string, []string) {
	script := filepath.Join(workDir, d.LaunchScript)
	if d.Platform == models.PlatformWindows {
		return "powershell", []string{"-ExecutionPolicy", "Unrestricted", "-File", script, "-f"}
	}
	args := []string{"-f"}
	if privileged {
		args = append(args, "-R")
	}
	return script, args
}
