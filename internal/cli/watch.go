package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramendr/drenv/pkg/expr"
	"github.com/ramendr/drenv/pkg/kubectl"
)

// ErrConditionNotMet is returned by `drenv watch --until` when the watch
// ends before the expression matched.
var ErrConditionNotMet = errors.New("watch ended before condition was met")

type WatchArgs struct {
	*RootArgs

	JSONPath  string
	Namespace string
	Until     string
	Timeout   time.Duration
}

func (wa *WatchArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&wa.JSONPath, "jsonpath", "", "JSONPath template printed for each change")
	cmd.Flags().StringVarP(&wa.Namespace, "namespace", "n", "", "Namespace of the resource")
	cmd.Flags().StringVar(&wa.Until, "until", "",
		"CEL expression ending the watch once true, using line, fields, record and count")
	cmd.Flags().DurationVar(&wa.Timeout, "timeout", 0,
		"Stop watching after this duration, overrides watch.timeout from the configuration")
}

func newWatchCmd(ra *RootArgs) *cobra.Command {
	wa := &WatchArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "watch RESOURCE",
		Short: "Watch a resource and print each change",
		Example: `  # Print the phase of a DRPC whenever it changes:
  drenv --context hub watch -n busybox drpc/busybox --jsonpath '{.status.phase}'

  # Wait until the DRPC is deployed:
  drenv --context hub watch -n busybox drpc/busybox \
    --jsonpath '{.status.phase}' --until 'line == "Deployed"' --timeout 5m

  # Match on a field of the record:
  drenv watch pod/busybox --jsonpath '{.status}' \
    --until 'jsonPath(line, "$.phase") == "Running"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, wa, args[0])
		},
	}
	wa.AddFlags(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, wa *WatchArgs, resource string) error {
	var matcher *expr.Matcher

	if wa.Until != "" {
		env, err := expr.NewEnvironment()
		if err != nil {
			return fmt.Errorf("create expression environment: %w", err)
		}

		matcher, err = env.NewMatcher(wa.Until)
		if err != nil {
			return fmt.Errorf("--until: %w", err)
		}
	}

	client, err := wa.newClient(cmd)
	if err != nil {
		return err
	}

	timeout := wa.Timeout
	if timeout == 0 {
		timeout, err = wa.config.Watch.TimeoutDuration()
		if err != nil {
			return err //nolint:wrapcheck // Already names the setting.
		}
	}

	opts := wa.kubeOpts()
	if wa.JSONPath != "" {
		opts = append(opts, kubectl.WithJSONPath(wa.JSONPath))
	}

	if wa.Namespace != "" {
		opts = append(opts, kubectl.WithNamespace(wa.Namespace))
	}

	if timeout > 0 {
		opts = append(opts, kubectl.WithTimeout(timeout))
	}

	ctx := cmd.Context()

	stream, err := client.Watch(ctx, resource, opts...)
	if err != nil {
		return err //nolint:wrapcheck // Propagated unchanged.
	}

	defer func() {
		err := stream.Close()
		if err != nil {
			slog.Debug("close watch", slog.Any("err", err))
		}
	}()

	for stream.Next() {
		line := stream.Text()
		mustN(fmt.Fprintln(cmd.OutOrStdout(), line))

		if matcher == nil {
			continue
		}

		matched, err := matcher.Match(line)
		if err != nil {
			return fmt.Errorf("--until: %w", err)
		}

		if matched {
			slog.Info("condition met",
				slog.String("resource", resource),
				slog.Int64("changes", matcher.Count()),
			)

			return nil
		}
	}

	err = stream.Err()
	if err != nil {
		return err //nolint:wrapcheck // Propagated unchanged.
	}

	if matcher != nil {
		return fmt.Errorf("%w: %s", ErrConditionNotMet, wa.Until)
	}

	return nil
}
