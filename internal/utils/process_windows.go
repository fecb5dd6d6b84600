//go:build windows

package utils

import (
	"fmt"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

// STILL_ACTIVE exit code reported for a live process
const stillActive = 259

// SetNewPG starts the child in a new process group.
func SetNewPG(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

// TerminateGroup asks the process tree rooted at pid to exit.
func TerminateGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/PID", strconv.Itoa(pid)).Run()
}

// KillGroup forcibly ends the process tree rooted at pid.
func KillGroup(pid int) error {
	if err := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run(); err != nil {
		running, _ := IsProcessRunning(pid)
		if !running {
			return nil
		}
		return fmt.Errorf("failed to kill process tree %d: %w", pid, err)
	}
	return nil
}

// IsProcessRunning checks the exit code of pid; STILL_ACTIVE means it is alive.
func IsProcessRunning(pid int) (bool, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false, nil
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false, fmt.Errorf("failed to get exit code for process %d: %w", pid, err)
	}
	return code == stillActive, nil
}

// IsPrivileged is always false; the server refuses to run as root only on Unix.
func IsPrivileged() bool {
	return false
}
