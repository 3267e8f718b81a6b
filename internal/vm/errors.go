package vm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotImplemented marks operations that have no backend yet.
	ErrNotImplemented = errors.New("VM operation not implemented")
	// ErrInvalidName is returned before any tool invocation for unusable names.
	ErrInvalidName = errors.New("invalid VM name")
	// ErrVMNotFound matches tool failures that report an unknown instance.
	ErrVMNotFound = errors.New("vm not found")
)

// ProcessIOError reports that the tool could not be spawned or awaited.
type ProcessIOError struct {
	Err error
}

func (e *ProcessIOError) Error() string {
	return fmt.Sprintf("failed to execute command: %v", e.Err)
}

func (e *ProcessIOError) Unwrap() error { return e.Err }

// CommandFailedError reports a tool run that exited non-zero.
type CommandFailedError struct {
	Action     string
	StatusCode int
	Stderr     string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("multipass %s failed with status %d: %s", e.Action, e.StatusCode, e.Stderr)
}

// Is lets errors.Is(err, ErrVMNotFound) see through tool failures for
// instances multipass does not know about.
func (e *CommandFailedError) Is(target error) bool {
	if target != ErrVMNotFound {
		return false
	}
	return strings.Contains(strings.ToLower(e.Stderr), "does not exist")
}

// InvalidOutputError reports a zero exit whose output did not match the
// expected structure.
type InvalidOutputError struct {
	Action string
	Reason string
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("invalid multipass output for %s: %s", e.Action, e.Reason)
}

// ValidateName rejects names that would be empty or read as a tool flag.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q must not start with '-'", ErrInvalidName, name)
	}
	return nil
}
