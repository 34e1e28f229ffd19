package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soda92/pytestbridge/internal/domain"
	m "github.com/soda92/pytestbridge/internal/model"
)

var discoverCwdFlag string
var discoverEnvFlags []string
var discoverTimeoutFlag time.Duration

// discoverCmd represents the discover command.
var discoverCmd = newDiscoverCmd()

func newDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover [pytest-args...]",
		Short: "List the tests the project defines without running them",
		Long:  "Run the discovery path of the adapter: collect tests in the working directory and print them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvOverlay(discoverEnvFlags)
			if err != nil {
				return err
			}

			timeout := discoverTimeoutFlag
			if !cmd.Flags().Changed(timeoutFlagName) {
				timeout = runTimeout()
			}

			return workflow.Discover(cmd.Context(), domain.DiscoverArgs{
				Args:    args,
				Cwd:     m.Path(discoverCwdFlag),
				Env:     env,
				Command: viper.GetStringSlice(runCommandKey),
				Timeout: timeout,
			})
		},
	}

	cmd.Flags().StringVarP(&discoverCwdFlag, "cwd", "C", ".", "working directory to discover in")
	cmd.Flags().StringArrayVarP(&discoverEnvFlags, "env", "e", nil, "environment overlay entry KEY=VALUE (can be repeated)")
	cmd.Flags().DurationVarP(&discoverTimeoutFlag, timeoutFlagName, "t", runTimeout(), "kill the test process after this duration")

	return cmd
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
