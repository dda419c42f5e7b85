// Package kubectl runs kubectl commands.
//
// Each [Client] method builds the argument list for one kubectl subcommand
// and runs it through a [Runner]. Methods come in two flavors:
//
//   - Run mode ([Client.Version], [Client.Get], ...) waits for kubectl to exit
//     and returns its standard output.
//   - Watch mode ([Client.Apply], [Client.Wait], ...) forwards each output line
//     to a [LogFunc] while kubectl runs.
//
// [Client.Watch] returns the output lines of `kubectl get --watch` as an
// [execs.LineStream] which the caller closes to stop watching.
package kubectl

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramendr/drenv/pkg/execs"
)

// DefaultCommand is the kubectl executable used by default.
const DefaultCommand = "kubectl"

// Runner runs commands on behalf of a [Client].
type Runner interface {
	// Run executes the command and returns its standard output.
	Run(ctx context.Context, cmd execs.Command) (string, error)
	// Watch starts the command and returns its output lines.
	Watch(ctx context.Context, cmd execs.Command) (execs.LineStream, error)
}

// LogFunc receives one line of command output.
type LogFunc func(line string)

// Println returns a [LogFunc] writing each line to w followed by a newline.
func Println(w io.Writer) LogFunc {
	return func(line string) {
		//nolint:errcheck // Best effort, like fmt.Println.
		fmt.Fprintln(w, line)
	}
}

// Client runs kubectl commands. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	runner   Runner
	tracer   trace.Tracer
	log      LogFunc
	command  string
	baseArgs []string
}

// ClientOpt configures a [Client].
type ClientOpt func(*Client)

// WithRunner sets the [Runner] used to execute kubectl.
func WithRunner(r Runner) ClientOpt {
	return func(c *Client) {
		c.runner = r
	}
}

// WithCommand sets the kubectl executable, and arguments added before the
// subcommand of every invocation, e.g. "--kubeconfig", "path".
func WithCommand(name string, baseArgs ...string) ClientOpt {
	return func(c *Client) {
		c.command = name
		c.baseArgs = baseArgs
	}
}

// WithLog sets the default [LogFunc] for watch mode commands.
func WithLog(fn LogFunc) ClientOpt {
	return func(c *Client) {
		c.log = fn
	}
}

// WithTracer sets the tracer used to record a span per operation.
func WithTracer(tracer trace.Tracer) ClientOpt {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// New creates a new [Client]. By default it runs "kubectl" from PATH with an
// [execs.Executor] and prints watch mode output to standard output.
func New(opts ...ClientOpt) *Client {
	c := &Client{
		command: DefaultCommand,
		log:     Println(os.Stdout),
		tracer:  otel.Tracer("kubectl"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.runner == nil {
		c.runner = NewExecRunner(execs.NewExecutor())
	}

	return c
}

// ExecRunner adapts an [execs.Executor] to the [Runner] interface.
type ExecRunner struct {
	executor *execs.Executor
}

// NewExecRunner creates a new [ExecRunner].
func NewExecRunner(e *execs.Executor) *ExecRunner {
	return &ExecRunner{executor: e}
}

// Run implements [Runner].
func (r *ExecRunner) Run(ctx context.Context, cmd execs.Command) (string, error) {
	return r.executor.Run(ctx, cmd) //nolint:wrapcheck // Errors carry the command already.
}

// Watch implements [Runner].
func (r *ExecRunner) Watch(ctx context.Context, cmd execs.Command) (execs.LineStream, error) {
	s, err := r.executor.Watch(ctx, cmd)
	if err != nil {
		return nil, err //nolint:wrapcheck // Errors carry the command already.
	}

	return s, nil
}

// newCommand builds "kubectl [base args] <subcommand> [--context C] args...".
func (c *Client) newCommand(o *options, subcommand string, args ...string) execs.Command {
	argv := slices.Clone(c.baseArgs)
	argv = append(argv, subcommand)

	if o.kubeContext != "" {
		argv = append(argv, "--context", o.kubeContext)
	}

	argv = append(argv, args...)

	return execs.Command{
		Command: c.command,
		Args:    argv,
		Env:     o.env,
	}
}

func (c *Client) startSpan(ctx context.Context, op string, o *options) (context.Context, trace.Span) {
	//nolint:spancheck // Ended by the caller.
	return c.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("kubectl.operation", op),
		attribute.String("kubectl.context", o.kubeContext),
	))
}

// run executes cmd in run mode.
func (c *Client) run(ctx context.Context, op string, o *options, cmd execs.Command) (string, error) {
	ctx, span := c.startSpan(ctx, op, o)
	defer span.End()

	out, err := c.runner.Run(ctx, cmd)
	if err != nil {
		recordError(span, err)

		return "", err //nolint:wrapcheck // Propagated unchanged.
	}

	return out, nil
}

// lineHandler receives one output line of a watch mode command, with the
// context of the operation span.
type lineHandler func(ctx context.Context, line string)

// stream executes cmd in watch mode, passing each output line to handle.
func (c *Client) stream(ctx context.Context, op string, o *options, cmd execs.Command, handle lineHandler) error {
	ctx, span := c.startSpan(ctx, op, o)
	defer span.End()

	lines, err := c.runner.Watch(ctx, cmd)
	if err != nil {
		recordError(span, err)

		return err //nolint:wrapcheck // Propagated unchanged.
	}

	defer lines.Close() //nolint:errcheck // Close after exhaustion only reaps the process.

	for lines.Next() {
		handle(ctx, lines.Text())
	}

	err = lines.Err()
	if err != nil {
		recordError(span, err)

		return err //nolint:wrapcheck // Propagated unchanged.
	}

	return nil
}

// printLines returns a [lineHandler] calling the [LogFunc] of o, or the
// client's default.
func (c *Client) printLines(o *options) lineHandler {
	logf := c.log
	if o.log != nil {
		logf = o.log
	}

	return func(_ context.Context, line string) {
		logf(line)
	}
}

// spanStream ends the span of [Client.Watch] once the stream is exhausted
// or closed, recording the error that ended it.
type spanStream struct {
	execs.LineStream

	span trace.Span
	once sync.Once
}

func (s *spanStream) Next() bool {
	if s.LineStream.Next() {
		return true
	}

	s.end(s.LineStream.Err())

	return false
}

func (s *spanStream) Close() error {
	err := s.LineStream.Close()
	s.end(nil)

	return err //nolint:wrapcheck // Propagated unchanged.
}

func (s *spanStream) end(err error) {
	s.once.Do(func() {
		if err != nil {
			recordError(s.span, err)
		}

		s.span.End()
	})
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
