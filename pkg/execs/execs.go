package execs

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramendr/drenv/pkg/log"
)

// DefaultStderrLines is the number of trailing standard error lines a
// [Stream] keeps for error reporting.
const DefaultStderrLines = 50

// Executor runs commands. The zero value is not usable; see [NewExecutor].
type Executor struct {
	tracer      trace.Tracer
	stderrLines int
}

// ExecutorOpt configures an [Executor].
type ExecutorOpt func(*Executor)

// WithTracer sets the tracer used to record a span per command.
func WithTracer(tracer trace.Tracer) ExecutorOpt {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

// WithStderrLines sets how many trailing standard error lines a [Stream]
// keeps for error reporting.
func WithStderrLines(n int) ExecutorOpt {
	return func(e *Executor) {
		e.stderrLines = n
	}
}

// NewExecutor creates a new [Executor].
func NewExecutor(opts ...ExecutorOpt) *Executor {
	e := &Executor{
		tracer:      otel.Tracer("executor"),
		stderrLines: DefaultStderrLines,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes c and returns its standard output once it exits.
//
// If the command fails to start or exits with a non-zero status, Run returns
// an [*Error] holding the captured output. If the timeout expires first, the
// error matches [ErrTimeout].
func (e *Executor) Run(ctx context.Context, c Command) (string, error) {
	parent := ctx

	ctx, span := e.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("command", c.String()),
	))
	defer span.End()

	logger := log.WithContext(ctx).With(slog.String("command", c.String()))

	ctx, cancel := c.context(ctx)
	defer cancel()

	cmd, err := c.build(ctx)
	if err != nil {
		recordError(span, err)

		return "", err
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	err = cmd.Run()
	if err != nil {
		if ierr := c.interrupted(parent, ctx); ierr != nil {
			err = ierr
		} else {
			err = newError(c, err, stdout.String(), stderr.String())
		}

		logger.DebugContext(ctx, "command failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		recordError(span, err)

		return "", err
	}

	logger.DebugContext(ctx, "command executed successfully",
		slog.Duration("duration", time.Since(start)),
	)

	return stdout.String(), nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
