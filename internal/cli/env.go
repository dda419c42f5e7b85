package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix is prepended to the environment variable of every drenv flag.
const envPrefix = "DRENV_"

// bindEnvVars sets unset flags of cmd from DRENV_* environment variables, so
// that a test environment can pin e.g. the kubectl command line once:
//
//	DRENV_KUBECTL="oc --kubeconfig /tmp/hub.kubeconfig" drenv get nodes
//
// Command line arguments win over the environment, which wins over defaults.
// The variable is appended to the flag usage so it shows up in --help.
func bindEnvVars(cmd *cobra.Command) {
	for _, flags := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
		flags.VisitAll(bindFlagToEnv)
	}
}

func bindFlagToEnv(flag *pflag.Flag) {
	name := flagToEnvName(flag.Name)

	if !strings.Contains(flag.Usage, name) {
		flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, name)
	}

	if flag.Changed {
		return
	}

	value, ok := os.LookupEnv(name)
	if !ok {
		return
	}

	// An invalid value keeps the default.
	err := flag.Value.Set(value)
	if err != nil {
		slog.Error("ignoring environment variable",
			slog.String("env", name),
			slog.String("flag", flag.Name),
			slog.String("value", value),
			slog.Any("err", err),
		)
	}
}

// flagToEnvName returns the environment variable of a flag, e.g. "log-level"
// is read from DRENV_LOG_LEVEL.
func flagToEnvName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
