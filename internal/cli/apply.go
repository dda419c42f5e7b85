package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ramendr/drenv/pkg/filewatch"
	"github.com/ramendr/drenv/pkg/kubectl"
	"github.com/ramendr/drenv/pkg/log"
)

var (
	// ErrStdinTerminal is returned when manifests would be read from a terminal.
	ErrStdinTerminal = errors.New("refusing to read manifests from a terminal")
	// ErrWatchFiles is returned when --watch cannot be used with the given files.
	ErrWatchFiles = errors.New("--watch requires --filename with files or directories")
)

type ApplyArgs struct {
	*RootArgs

	Filenames []string
	Watch     bool
}

func (aa *ApplyArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&aa.Filenames, "filename", "f", nil,
		"Manifest files or directories to apply, - reads standard input")
	cmd.Flags().BoolVarP(&aa.Watch, "watch", "w", false, "Apply again when the manifests change")

	must(cmd.MarkFlagFilename("filename", "yaml", "yml", "json"))
}

func newApplyCmd(ra *RootArgs) *cobra.Command {
	aa := &ApplyArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "apply [-f PATH]... [args...]",
		Short: "Run kubectl apply",
		Example: `  # Apply a directory and apply it again when files change:
  drenv --context dr1 apply -f ./manifests --watch

  # Apply manifests from standard input:
  drenv kustomize ./overlays/dr1 | drenv --context dr1 apply -f -

  # Pass other arguments to kubectl:
  drenv apply -f app.yaml -- --server-side --force-conflicts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, aa, args)
		},
	}
	aa.AddFlags(cmd)
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func runApply(cmd *cobra.Command, aa *ApplyArgs, extraArgs []string) error {
	client, err := aa.newClient(cmd)
	if err != nil {
		return err
	}

	opts := aa.kubeOpts()

	if slices.Contains(aa.Filenames, "-") {
		if aa.Watch {
			return ErrWatchFiles
		}

		input, err := readStdin(cmd.InOrStdin())
		if err != nil {
			return err
		}

		opts = append(opts, kubectl.WithInput(input))
	}

	args := make([]string, 0, 2*len(aa.Filenames)+len(extraArgs))
	for _, f := range aa.Filenames {
		args = append(args, "--filename", f)
	}

	args = append(args, extraArgs...)

	ctx := cmd.Context()

	if !aa.Watch {
		return client.Apply(ctx, args, opts...)
	}

	if len(aa.Filenames) == 0 {
		return ErrWatchFiles
	}

	watcher, err := filewatch.New(aa.Filenames)
	if err != nil {
		return fmt.Errorf("watch manifests: %w", err)
	}

	defer func() {
		err := watcher.Close()
		if err != nil {
			slog.Error("close file watcher", slog.Any("err", err))
		}
	}()

	err = client.Apply(ctx, args, opts...)
	if err != nil {
		return err
	}

	slog.Info("watching manifests for changes", slog.Any("paths", aa.Filenames))

	return watcher.Run(ctx, func(ctx context.Context, changed []string) {
		logger := log.WithContext(ctx)
		logger.InfoContext(ctx, "manifests changed, applying", slog.Any("files", changed))

		err := client.Apply(ctx, args, opts...)
		if err != nil {
			logger.ErrorContext(ctx, "apply manifests", slog.Any("err", err))
		}
	})
}

// readStdin reads all of r, unless r is a terminal.
func readStdin(r io.Reader) ([]byte, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: fd fits in int.
		return nil, ErrStdinTerminal
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}

	return b, nil
}
