package execs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os/exec"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramendr/drenv/pkg/log"
)

// maxLineSize is the longest output line a [Stream] accepts.
const maxLineSize = 1024 * 1024

// LineStream is a lazily produced sequence of output lines.
//
// It follows the [bufio.Scanner] convention: call Next until it returns
// false, then check Err. Close may be called at any time to stop early, and
// must be called if the stream is abandoned before Next returns false.
type LineStream interface {
	Next() bool
	Text() string
	Err() error
	Close() error
}

// Stream is the [LineStream] returned by [Executor.Watch].
type Stream struct {
	parent  context.Context //nolint:containedctx // Needed to classify errors after the fact.
	ctx     context.Context //nolint:containedctx // Bounds the process lifetime.
	start   time.Time
	cancel  context.CancelFunc
	span    trace.Span
	logger  *slog.Logger
	cmd     *exec.Cmd
	reader  *io.PipeReader
	scanner *bufio.Scanner
	stderr  *log.CircularBuffer
	exited  chan struct{}
	err     error
	waitErr error
	line    string
	command Command
	closed  atomic.Bool
	done    bool
}

// Watch starts c and returns a [Stream] over its standard output lines.
//
// If c.MergeStderr is set, standard error is interleaved into the stream.
// Otherwise the last lines of standard error are kept and reported in the
// [*Error] returned by [Stream.Err] when the command fails.
//
// Watch returns an [*Error] if the command cannot be started. Once running,
// the process ends when it exits, when c.Timeout elapses, when ctx is done,
// or when the stream is closed.
func (e *Executor) Watch(ctx context.Context, c Command) (*Stream, error) {
	parent := ctx

	ctx, span := e.tracer.Start(ctx, "watch", trace.WithAttributes(
		attribute.String("command", c.String()),
	))

	logger := log.WithContext(ctx).With(slog.String("command", c.String()))

	ctx, cancel := c.context(ctx)

	cmd, err := c.build(ctx)
	if err != nil {
		cancel()
		recordError(span, err)
		span.End()

		return nil, err
	}

	// Output goes through an [io.Pipe] so that [exec.Cmd.Wait] can run in the
	// background: it returns only after everything written was consumed, or
	// after the reader was closed.
	pr, pw := io.Pipe()

	stderr := log.NewCircularBuffer(e.stderrLines)

	cmd.Stdout = pw
	if c.MergeStderr {
		cmd.Stderr = pw
	} else {
		cmd.Stderr = stderr
	}

	err = cmd.Start()
	if err != nil {
		cancel()

		startErr := newError(c, err, "", "")
		recordError(span, startErr)
		span.End()

		return nil, startErr
	}

	logger.DebugContext(ctx, "command started")

	s := &Stream{
		parent:  parent,
		ctx:     ctx,
		start:   time.Now(),
		cancel:  cancel,
		span:    span,
		logger:  logger,
		cmd:     cmd,
		reader:  pr,
		scanner: newScanner(pr),
		stderr:  stderr,
		exited:  make(chan struct{}),
		command: c,
	}

	go s.reap(pw)

	return s, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)

	return scanner
}

// Next advances to the next line, which is then available through
// [Stream.Text]. It returns false when the process has exited and all of its
// output was read, or when the stream was closed.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}

	if !s.closed.Load() && s.scanner.Scan() {
		s.line = s.scanner.Text()

		return true
	}

	s.done = true
	s.line = ""
	s.err = s.finish(s.scanner.Err())

	return false
}

// Text returns the most recent line read by [Stream.Next], without the
// trailing newline.
func (s *Stream) Text() string {
	return s.line
}

// Err returns the error that ended the stream, if any. It returns nil if the
// stream ended because the process exited successfully or because
// [Stream.Close] was called.
func (s *Stream) Err() error {
	return s.err
}

// Close terminates the process if it is still running and waits for it to
// exit. It is safe to call more than once, after the stream is exhausted, and
// concurrently with [Stream.Next].
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.stop()
	<-s.exited
	s.span.End()

	return nil
}

// Lines returns an iterator over the remaining lines. Breaking out of the
// loop closes the stream. Check [Stream.Err] after the loop.
func (s *Stream) Lines() iter.Seq[string] {
	return Lines(s)
}

// Lines returns an iterator over the remaining lines of ls. Breaking out of
// the loop closes ls.
func Lines(ls LineStream) iter.Seq[string] {
	return func(yield func(string) bool) {
		for ls.Next() {
			if !yield(ls.Text()) {
				//nolint:errcheck // Close after early exit only terminates the process.
				ls.Close()

				return
			}
		}
	}
}

// reap waits for the process to exit and for its output to be consumed.
func (s *Stream) reap(pw *io.PipeWriter) {
	s.waitErr = s.cmd.Wait()
	s.cancel()

	// Deliver EOF to the scanner.
	//nolint:errcheck // Closing a pipe writer without an error always succeeds.
	pw.Close()

	s.logger.DebugContext(s.ctx, "command exited",
		slog.Duration("duration", time.Since(s.start)),
		slog.Bool("closed", s.closed.Load()),
		slog.Any("error", s.waitErr),
	)

	close(s.exited)
}

// stop kills the process and discards any output not yet read.
func (s *Stream) stop() {
	s.cancel()

	//nolint:errcheck // Closing a pipe reader always succeeds.
	s.reader.Close()
}

func (s *Stream) finish(scanErr error) error {
	defer s.span.End()

	if scanErr != nil {
		// The process may still be writing.
		s.stop()
	}

	<-s.exited

	waitErr := s.waitErr

	if s.closed.Load() {
		return nil
	}

	if err := s.command.interrupted(s.parent, s.ctx); err != nil && waitErr != nil {
		recordError(s.span, err)

		return err
	}

	if scanErr != nil {
		err := fmt.Errorf("read output of %q: %w", s.command.String(), scanErr)
		recordError(s.span, err)

		return err
	}

	if waitErr != nil {
		err := newError(s.command, waitErr, "", s.stderr.String())
		recordError(s.span, err)

		return err
	}

	return nil
}
