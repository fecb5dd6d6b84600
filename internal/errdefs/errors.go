package errdefs

import (
	"fmt"
	"strings"
)

// FormatError reports a malformed version string.
type FormatError struct {
	Input   string
	Message string
}

// NewFormatError constructs a FormatError.
func NewFormatError(input, message string) error {
	return &FormatError{Input: input, Message: message}
}

func (e *FormatError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("format error: %q: %s", e.Input, e.Message)
}

// ConfigError captures an invalid or inconsistent node setting.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

// NewConfigError constructs a ConfigError.
func NewConfigError(field, message string, err error) error {
	return &ConfigError{Field: field, Message: message, Err: err}
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PortAllocationError is returned when no free, non-colliding port could be found.
type PortAllocationError struct {
	Port     string
	Attempts int
	Err      error
}

// NewPortAllocationError constructs a PortAllocationError.
func NewPortAllocationError(port string, attempts int, err error) error {
	return &PortAllocationError{Port: port, Attempts: attempts, Err: err}
}

func (e *PortAllocationError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("port allocation error: %s: no free port after %d attempts", e.Port, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying error.
func (e *PortAllocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FileError reports a customizer that could not read, patch or replace a file.
type FileError struct {
	Customizer string
	Path       string
	Err        error
}

// NewFileError constructs a FileError.
func NewFileError(customizer, path string, err error) error {
	return &FileError{Customizer: customizer, Path: path, Err: err}
}

func (e *FileError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path != "" {
		return fmt.Sprintf("file error [%s]: %s: %v", e.Customizer, e.Path, e.Err)
	}
	return fmt.Sprintf("file error [%s]: %v", e.Customizer, e.Err)
}

// Unwrap exposes the underlying error.
func (e *FileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StartError reports a spawn failure or a readiness outcome other than ready.
type StartError struct {
	Node   string
	Reason string
	Output []string
	Err    error
}

// NewStartError constructs a StartError. Output is the tail of the process output, if any.
func NewStartError(node, reason string, output []string, err error) error {
	return &StartError{Node: node, Reason: reason, Output: output, Err: err}
}

func (e *StartError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "start error [%s]: %s", e.Node, e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Output) > 0 {
		b.WriteString("\n--- last output ---\n")
		b.WriteString(strings.Join(e.Output, "\n"))
	}
	return b.String()
}

// Unwrap exposes the underlying error.
func (e *StartError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StopError reports that the process could not be terminated.
type StopError struct {
	Node string
	Pid  int
	Err  error
}

// NewStopError constructs a StopError.
func NewStopError(node string, pid int, err error) error {
	return &StopError{Node: node, Pid: pid, Err: err}
}

func (e *StopError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("stop error [%s] (PID: %d): %v", e.Node, e.Pid, e.Err)
}

// Unwrap exposes the underlying error.
func (e *StopError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
