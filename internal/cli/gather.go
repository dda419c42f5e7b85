package cli

import (
	"github.com/spf13/cobra"

	"github.com/ramendr/drenv/pkg/kubectl"
)

type GatherArgs struct {
	*RootArgs

	Directory  string
	Name       string
	Namespaces []string
	Verbose    bool
}

func (ga *GatherArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&ga.Namespaces, "namespaces", nil, "Namespaces to gather, all when empty")
	cmd.Flags().StringVarP(&ga.Directory, "directory", "d", "",
		"Directory for gathered data, overrides gather.directory from the configuration")
	cmd.Flags().StringVar(&ga.Name, "name", kubectl.DefaultGatherName, "Name added to the gather log records")
	cmd.Flags().BoolVarP(&ga.Verbose, "verbose", "v", false, "Log debug records of the gather plugin")

	must(cmd.MarkFlagDirname("directory"))
}

func newGatherCmd(ra *RootArgs) *cobra.Command {
	ga := &GatherArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "gather CONTEXT...",
		Short: "Gather data from clusters with kubectl-gather",
		Example: `  # Gather the ramen namespaces from all clusters:
  drenv gather hub dr1 dr2 --namespaces ramen-system,ramen-ops -d /tmp/gather`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ga.newClient(cmd)
			if err != nil {
				return err
			}

			directory := ga.Directory
			if directory == "" {
				directory = ga.config.Gather.Directory
			}

			opts := []kubectl.Opt{kubectl.WithName(ga.Name)}
			if len(ga.Namespaces) > 0 {
				opts = append(opts, kubectl.WithNamespaces(ga.Namespaces...))
			}

			if directory != "" {
				opts = append(opts, kubectl.WithDirectory(directory))
			}

			if ga.Verbose {
				opts = append(opts, kubectl.WithVerbose())
			}

			return client.Gather(cmd.Context(), args, opts...)
		},
	}
	ga.AddFlags(cmd)

	return cmd
}
