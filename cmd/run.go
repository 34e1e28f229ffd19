package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soda92/pytestbridge/internal/domain"
	m "github.com/soda92/pytestbridge/internal/model"
)

var runCwdFlags []string
var runEnvFlags []string
var runCoverageFlag bool
var runTimeoutFlag time.Duration

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [pytest-args...]",
		Short: "Execute tests and collect the result stream",
		Long: `Run the test process in one or more working directories. Extra arguments
are passed through to pytest. With --coverage the child is instrumented and
emits a final coverage payload mapping each source file to its covered and
missed lines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvOverlay(runEnvFlags)
			if err != nil {
				return err
			}

			// The flag default is computed before the config file is read;
			// an unchanged flag defers to the configured timeout.
			timeout := runTimeoutFlag
			if !cmd.Flags().Changed(timeoutFlagName) {
				timeout = runTimeout()
			}

			return workflow.Run(cmd.Context(), domain.RunArgs{
				Args:     args,
				Cwds:     parsePaths(runCwdFlags),
				Env:      env,
				Command:  viper.GetStringSlice(runCommandKey),
				Coverage: runCoverageFlag,
				Timeout:  timeout,
				Reports:  m.Path(viper.GetString(outputFlagName)),
			})
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&runCwdFlags, "cwd", "C", []string{"."}, "working directory to run in (can be repeated)")
	cmd.Flags().StringArrayVarP(&runEnvFlags, "env", "e", nil, "environment overlay entry KEY=VALUE (can be repeated)")
	cmd.Flags().BoolVar(&runCoverageFlag, coverageFlagName, false, "enable coverage instrumentation")
	cmd.Flags().DurationVarP(&runTimeoutFlag, timeoutFlagName, "t", runTimeout(), "kill the test process after this duration")
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
