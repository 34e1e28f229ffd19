package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soda92/pytestbridge/internal/domain"
	m "github.com/soda92/pytestbridge/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		Long:  "List the runs stored in the reports directory, most recent first.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.List(cmd.Context(), domain.ListArgs{
				Reports: m.Path(viper.GetString(outputFlagName)),
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
