package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soda92/pytestbridge/internal/controller"
	"github.com/soda92/pytestbridge/internal/domain"
	m "github.com/soda92/pytestbridge/internal/model"
)

var viewRunFlag string
var viewFormatFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View a previously stored run",
		Long:  "View the payload list of a stored run. Defaults to the most recent run.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := controller.Format(viewFormatFlag)

			switch format {
			case controller.FormatTable, controller.FormatJSON, controller.FormatYAML:
			default:
				return fmt.Errorf("unknown format %q", viewFormatFlag)
			}

			return workflow.View(cmd.Context(), domain.ViewArgs{
				Reports: m.Path(viper.GetString(outputFlagName)),
				RunID:   viewRunFlag,
				Format:  format,
			})
		},
	}

	cmd.Flags().StringVarP(&viewRunFlag, "run", "r", "", "run ID to view (default: most recent)")
	cmd.Flags().StringVarP(&viewFormatFlag, "format", "f", string(controller.FormatTable), "output format: table, json or yaml")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
