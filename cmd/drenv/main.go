package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"

	"github.com/ramendr/drenv/internal/cli"
	"github.com/ramendr/drenv/pkg/trace"
	"github.com/ramendr/drenv/pkg/version"
)

// traceShutdownTimeout bounds flushing spans on exit.
const traceShutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := trace.Setup(ctx, trace.ConfigFromEnv(version.GetVersion()))
	if err != nil {
		slog.Error("setup tracing", slog.Any("err", err))

		return 1
	}

	defer func() {
		// The signal context may be done already.
		ctx, cancel := context.WithTimeout(context.Background(), traceShutdownTimeout)
		defer cancel()

		err := shutdown(ctx)
		if err != nil {
			slog.Error("shutdown tracing", slog.Any("err", err))
		}
	}()

	err = fang.Execute(ctx, cli.NewRootCmd(),
		fang.WithVersion(version.GetVersion()),
		fang.WithCommit(version.Revision),
		fang.WithErrorHandler(cli.ErrorHandler),
	)
	if err != nil {
		return 1
	}

	return 0
}
