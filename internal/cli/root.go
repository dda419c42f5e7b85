package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/ramendr/drenv/pkg/config"
	"github.com/ramendr/drenv/pkg/kubectl"
	"github.com/ramendr/drenv/pkg/log"
)

const (
	cmdName = "drenv"
	cmdDesc = `Run kubectl against the clusters of a DR test environment.`

	cmdExamples = `  # Print the active configuration:
  drenv --show-config

  # Write the default configuration file:
  drenv --write-config

  # Get pods in the hub cluster:
  drenv --context hub get pods -A

  # Use a custom kubectl command line:
  drenv --kubectl "kubectl --kubeconfig /tmp/kc" get nodes

  # Arguments starting with a dash before the first positional argument
  # must follow --:
  drenv get -- -n ramen-system deploy`
)

// ErrInvalidKubectl is returned when the kubectl command line cannot be used.
var ErrInvalidKubectl = errors.New("invalid kubectl command")

type RootArgs struct {
	runner kubectl.Runner
	config *config.Config

	LogLevel    string
	LogFormat   string
	ConfigPath  string
	Context     string
	Kubectl     string
	WriteConfig bool
	ShowConfig  bool
}

// RootOpt configures the root command.
type RootOpt func(*RootArgs)

// WithRunner sets the [kubectl.Runner] used by all subcommands.
func WithRunner(r kubectl.Runner) RootOpt {
	return func(ra *RootArgs) {
		ra.runner = r
	}
}

func NewRootArgs(opts ...RootOpt) *RootArgs {
	ra := &RootArgs{}
	for _, opt := range opts {
		opt(ra)
	}

	return ra
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the drenv configuration file")
	cmd.PersistentFlags().
		StringVar(&ra.Context, "context", "", "Kubeconfig context, overrides kubectl.context from the configuration")
	cmd.PersistentFlags().
		StringVar(&ra.Kubectl, "kubectl", "", "kubectl command line, overrides kubectl.command from the configuration")

	cmd.Flags().BoolVar(&ra.WriteConfig, "write-config", false, "Write the default configuration file and exit")
	cmd.Flags().BoolVar(&ra.ShowConfig, "show-config", false, "Print the active configuration and exit")

	must(cmd.MarkPersistentFlagFilename("config", "yaml", "yml"))

	must(cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	))

	must(cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	))
}

func NewRootCmd(opts ...RootOpt) *cobra.Command {
	args := NewRootArgs(opts...)

	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		Args:              cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, args)
		},
	}

	args.AddFlags(cmd)

	cmd.AddCommand(
		newVersionCmd(args),
		newPassthroughCmd(args, "config", "Run kubectl config", (*kubectl.Client).Config),
		newPassthroughCmd(args, "create", "Run kubectl create", (*kubectl.Client).Create),
		newPassthroughCmd(args, "get", "Run kubectl get", (*kubectl.Client).Get),
		newPassthroughCmd(args, "describe", "Run kubectl describe", (*kubectl.Client).Describe),
		newPassthroughCmd(args, "exec", "Run kubectl exec", (*kubectl.Client).Exec),
		newKustomizeCmd(args),
		newApplyCmd(args),
		newStreamingCmd(args, "patch", "Run kubectl patch", (*kubectl.Client).Patch),
		newStreamingCmd(args, "delete", "Run kubectl delete", (*kubectl.Client).Delete),
		newStreamingCmd(args, "rollout", "Run kubectl rollout", (*kubectl.Client).Rollout),
		newStreamingCmd(args, "wait", "Run kubectl wait", (*kubectl.Client).Wait),
		newLabelCmd(args),
		newAnnotateCmd(args),
		newWatchCmd(args),
		newGatherCmd(args),
	)

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(rc *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), rc.LogLevel, rc.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))

		return nil
	}
}

func runRoot(cmd *cobra.Command, ra *RootArgs) error {
	if ra.WriteConfig {
		return config.WriteDefault(ra.configPath(), true) //nolint:wrapcheck // Returned as-is.
	}

	if !ra.ShowConfig {
		return cmd.Help() //nolint:wrapcheck // Returned as-is.
	}

	cfg, err := ra.loadConfig()
	if err != nil {
		return err
	}

	slog.Info("active configuration", slog.String("path", ra.configPath()))

	yamlBytes, err := cfg.MarshalYAML()
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}

	mustN(fmt.Fprint(cmd.OutOrStdout(), string(yamlBytes)))

	return nil
}

func (ra *RootArgs) configPath() string {
	if ra.ConfigPath != "" {
		return ra.ConfigPath
	}

	return config.GetPath()
}

// loadConfig loads the configuration file once.
func (ra *RootArgs) loadConfig() (*config.Config, error) {
	if ra.config != nil {
		return ra.config, nil
	}

	cfg, err := config.Load(ra.configPath())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	ra.config = cfg

	return cfg, nil
}

// newClient creates a [kubectl.Client] writing watch mode output to the
// command's standard output.
func (ra *RootArgs) newClient(cmd *cobra.Command) (*kubectl.Client, error) {
	cfg, err := ra.loadConfig()
	if err != nil {
		return nil, err
	}

	commandLine := cfg.Kubectl.Command
	if ra.Kubectl != "" {
		commandLine = ra.Kubectl
	}

	words, err := parseCommandLine(commandLine)
	if err != nil {
		return nil, err
	}

	slog.Debug("kubectl command", slog.String("command", strings.Join(words, " ")))

	return kubectl.New(
		kubectl.WithCommand(words[0], words[1:]...),
		kubectl.WithLog(kubectl.Println(cmd.OutOrStdout())),
		kubectl.WithRunner(ra.runner),
	), nil
}

// kubeOpts returns the options shared by every kubectl invocation.
func (ra *RootArgs) kubeOpts() []kubectl.Opt {
	kubeContext := ra.Context
	if kubeContext == "" && ra.config != nil {
		kubeContext = ra.config.Kubectl.Context
	}

	return []kubectl.Opt{kubectl.WithKubeContext(kubeContext)}
}

func parseCommandLine(s string) ([]string, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = true

	words, err := parser.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidKubectl, s, err)
	}

	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty command line", ErrInvalidKubectl)
	}

	return words, nil
}
