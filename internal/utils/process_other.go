//go:build !unix && !windows

package utils

import (
	"errors"
	"os/exec"
)

var errUnsupported = errors.New("process groups are not supported on this platform")

// SetNewPG is a no-op on unsupported targets.
func SetNewPG(cmd *exec.Cmd) {}

func TerminateGroup(pid int) error { return errUnsupported }

func KillGroup(pid int) error { return errUnsupported }

func IsProcessRunning(pid int) (bool, error) { return false, errUnsupported }

func IsPrivileged() bool { return false }
