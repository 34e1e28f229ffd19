// Package cmd provides the root command and CLI setup for pytestbridge.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soda92/pytestbridge/internal/adapter"
	"github.com/soda92/pytestbridge/internal/controller"
	"github.com/soda92/pytestbridge/internal/domain"
)

var processAdapter adapter.ProcessAdapter
var fsAdapter adapter.WorkdirFSAdapter
var payloadStore adapter.PayloadStore
var normalizer domain.Normalizer
var orchestrator domain.Orchestrator
var workflow domain.Workflow
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write runs.
var reportsOutputDirFlag string

// verboseFlag switches file logging to debug level.
var verboseFlag bool

// logFileFlag overrides the log file location.
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	processAdapter = adapter.NewLocalProcessAdapter()
	fsAdapter = adapter.NewLocalWorkdirFSAdapter()
	payloadStore = adapter.NewPayloadStore()
	normalizer = domain.NewNormalizer()
	orchestrator = domain.NewOrchestrator(processAdapter, normalizer)
	workflow = domain.NewWorkflow(payloadStore, fsAdapter, ui, orchestrator)
}

const rootLongDescription = `Pytestbridge launches a pytest process against a target project, consumes
its structured result stream, and reports which tests ran and which lines
and branches of each source file were exercised.

The test process speaks a line-delimited JSON protocol on stdout; every run
is stored so it can be inspected later with 'view'.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pytestbridge",
		Short: "Structured pytest execution and coverage bridge",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for stored run payloads",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", viper.GetBool(logVerboseKey), "log at debug level")
	cmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "log file path (default from config)")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// parseEnvOverlay turns repeated KEY=VALUE flags into an overlay map.
func parseEnvOverlay(entries []string) (map[string]string, error) {
	overlay := make(map[string]string, len(entries))

	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid env entry %q, expected KEY=VALUE", entry)
		}

		overlay[key] = value
	}

	return overlay, nil
}
