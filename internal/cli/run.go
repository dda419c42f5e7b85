package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramendr/drenv/pkg/kubectl"
	"github.com/ramendr/drenv/pkg/version"
)

// runFunc is a run mode [kubectl.Client] method.
type runFunc func(c *kubectl.Client, ctx context.Context, args []string, opts ...kubectl.Opt) (string, error)

// watchFunc is a watch mode [kubectl.Client] method.
type watchFunc func(c *kubectl.Client, ctx context.Context, args []string, opts ...kubectl.Opt) error

// newPassthroughCmd creates a command passing its arguments to a run mode
// kubectl subcommand and printing the output.
func newPassthroughCmd(ra *RootArgs, name, short string, fn runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " [args...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ra.newClient(cmd)
			if err != nil {
				return err
			}

			out, err := fn(client, cmd.Context(), args, ra.kubeOpts()...)
			if err != nil {
				return err
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), out))

			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)

	return cmd
}

// newStreamingCmd creates a command passing its arguments to a watch mode
// kubectl subcommand. Output lines are printed while kubectl runs.
func newStreamingCmd(ra *RootArgs, name, short string, fn watchFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " [args...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ra.newClient(cmd)
			if err != nil {
				return err
			}

			return fn(client, cmd.Context(), args, ra.kubeOpts()...)
		},
	}
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func newVersionCmd(ra *RootArgs) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print drenv and kubectl versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mustN(fmt.Fprint(cmd.OutOrStdout(), version.Info()))

			client, err := ra.newClient(cmd)
			if err != nil {
				return err
			}

			opts := ra.kubeOpts()
			if output != "" {
				opts = append(opts, kubectl.WithOutput(output))
			}

			out, err := client.Version(cmd.Context(), opts...)
			if err != nil {
				return err
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), "\n", out))

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "kubectl version output format, one of: json, yaml")
	must(cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions([]string{"json", "yaml"}, cobra.ShellCompDirectiveNoFileComp),
	))

	return cmd
}

func newKustomizeCmd(ra *RootArgs) *cobra.Command {
	var loadRestrictor string

	cmd := &cobra.Command{
		Use:   "kustomize DIR",
		Short: "Build a kustomization directory",
		Example: `  # Build a kustomization using files outside of its directory:
  drenv kustomize --load-restrictor LoadRestrictionsNone ./overlays/dr1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ra.newClient(cmd)
			if err != nil {
				return err
			}

			opts := ra.kubeOpts()
			if loadRestrictor != "" {
				opts = append(opts, kubectl.WithLoadRestrictor(loadRestrictor))
			}

			out, err := client.Kustomize(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}

			mustN(fmt.Fprint(cmd.OutOrStdout(), out))

			return nil
		},
	}

	cmd.Flags().StringVar(&loadRestrictor, "load-restrictor", "", "Kustomize load restrictor")
	must(cmd.RegisterFlagCompletionFunc("load-restrictor",
		cobra.FixedCompletions(
			[]string{"LoadRestrictionsRootOnly", "LoadRestrictionsNone"},
			cobra.ShellCompDirectiveNoFileComp,
		),
	))

	return cmd
}
