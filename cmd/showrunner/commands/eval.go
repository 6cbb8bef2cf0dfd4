package commands

import (
	"github.com/spf13/cobra"

	"showrunner/domain"
)

// test <recipe>: launch a test-time evaluation run from a recipe file.
func evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <recipe>",
		Short: "Launch a test-time evaluation run from a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return launchRecipe(cmd, args[0], domain.ModeTest)
		},
	}
	cmd.Flags().StringArrayVar(&extraOverrides, "set", nil, "extra override as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the driver command instead of running it")
	return cmd
}
