package execs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on I/O after the process was killed,
// e.g. when a child process inherited the output pipe.
const waitDelay = 5 * time.Second

// Command describes a single process invocation.
type Command struct {
	// Command is the executable name or path.
	Command string
	// Dir is the working directory. Empty means the caller's.
	Dir string
	// Args contains the command line arguments.
	Args []string
	// Env replaces the process environment when non-nil.
	Env []string
	// Stdin is written to the standard input of the process.
	Stdin []byte
	// Timeout kills the process once elapsed. Zero means no timeout.
	Timeout time.Duration
	// MergeStderr sends standard error to the same pipe as standard output.
	MergeStderr bool
}

// NewCommand creates a new [Command].
func NewCommand(name string, args ...string) Command {
	return Command{
		Command: name,
		Args:    args,
	}
}

// Argv returns the executable followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Command}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// context derives the execution context, applying the timeout if set.
func (c Command) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeoutCause(ctx, c.Timeout, ErrTimeout)
	}

	return context.WithCancel(ctx)
}

// build prepares the [exec.Cmd]. The process is killed when ctx is done.
func (c Command) build(ctx context.Context) (*exec.Cmd, error) {
	if c.Command == "" {
		return nil, ErrEmptyCommand
	}

	//nolint:gosec // G204: Subprocess launched with a potential tainted input or cmd arguments.
	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.WaitDelay = waitDelay

	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	return cmd, nil
}

// interrupted reports why ctx ended the command early, or nil if it did not.
func (c Command) interrupted(parent, ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}

	if context.Cause(ctx) == ErrTimeout { //nolint:errorlint // Cause is the sentinel itself.
		return fmt.Errorf("%w: %q did not finish within %s", ErrTimeout, c.String(), c.Timeout)
	}

	if err := parent.Err(); err != nil {
		return fmt.Errorf("%q: %w", c.String(), context.Cause(parent))
	}

	return nil
}
