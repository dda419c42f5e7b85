package cli

import (
	"github.com/spf13/cobra"

	"github.com/ramendr/drenv/pkg/kubectl"
)

func newLabelCmd(ra *RootArgs) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "label RESOURCE KEY=VALUE|KEY-",
		Short: "Set or remove a label",
		Example: `  # Label a managed cluster:
  drenv --context hub label managedcluster/dr1 region=east --overwrite

  # Remove a label:
  drenv --context hub label managedcluster/dr1 region-`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ra.newClient(cmd)
			if err != nil {
				return err
			}

			opts := ra.kubeOpts()
			if overwrite {
				opts = append(opts, kubectl.WithOverwrite())
			}

			return client.Label(cmd.Context(), args[0], args[1], opts...)
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing label value")

	return cmd
}

func newAnnotateCmd(ra *RootArgs) *cobra.Command {
	var (
		overwrite bool
		namespace string
	)

	cmd := &cobra.Command{
		Use:   "annotate RESOURCE KEY=VALUE|KEY-...",
		Short: "Set or remove annotations",
		Example: `  # Annotate a placement, removing another annotation:
  drenv --context hub annotate -n busybox drpc/busybox drplacementcontrol.ramendr.openshift.io/is-cg-enabled=true old-`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			annotations := make([]kubectl.Annotation, 0, len(args)-1)

			for _, arg := range args[1:] {
				a, err := kubectl.ParseAnnotation(arg)
				if err != nil {
					return err //nolint:wrapcheck // Already describes the argument.
				}

				annotations = append(annotations, a)
			}

			client, err := ra.newClient(cmd)
			if err != nil {
				return err
			}

			opts := ra.kubeOpts()
			if overwrite {
				opts = append(opts, kubectl.WithOverwrite())
			}

			if namespace != "" {
				opts = append(opts, kubectl.WithNamespace(namespace))
			}

			return client.Annotate(cmd.Context(), args[0], annotations, opts...)
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing annotation values")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of the resource")

	return cmd
}
