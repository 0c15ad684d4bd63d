package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/mealbook/pkg/mealbook"
)

const modulePath = "github.com/mesh-intelligence/mealbook"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mealbook version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "mealbook v%s\nmodule: %s\n", mealbook.Version, modulePath)
			return nil
		},
	}
}
