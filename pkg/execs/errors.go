package execs

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrCommandExecution is matched by every [*Error].
	ErrCommandExecution = errors.New("run")

	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")

	// ErrTimeout is returned when a command did not finish within its timeout.
	ErrTimeout = errors.New("timeout")
)

// Error is returned when a command could not be started or exited with a
// non-zero status.
type Error struct {
	// Err is the underlying error from [exec.Cmd].
	Err error
	// Command is the command line that failed.
	Command string
	// Output is what the command wrote to standard output before failing.
	Output string
	// Stderr is what the command wrote to standard error.
	Stderr string
	// ExitCode is the exit status, or -1 if the command did not start.
	ExitCode int
}

func newError(c Command, err error, stdout, stderr string) *Error {
	exitCode := -1

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	return &Error{
		Err:      err,
		Command:  c.String(),
		Output:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
	}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %q: %v", ErrCommandExecution, e.Command, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}

	return msg
}

func (e *Error) Unwrap() []error {
	return []error{ErrCommandExecution, e.Err}
}
