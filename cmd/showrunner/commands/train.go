package commands

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"showrunner"
	"showrunner/domain"
	"showrunner/experiment"
)

var (
	extraOverrides []string
	dryRun         bool
)

// launchRecipe loads a recipe, applies --set overrides, and either prints the
// assembled command or launches it.
func launchRecipe(cmd *cobra.Command, recipePath string, mode domain.RunMode) error {
	recipe, err := showrunner.LoadRecipe(recipePath)
	if err != nil {
		return err
	}
	spec := recipe.LaunchSpec()
	if mode != "" {
		spec.Mode = mode
	}

	extras, err := experiment.ParseAssignments(extraOverrides)
	if err != nil {
		return err
	}
	spec.Overrides = experiment.Merge(spec.Overrides, extras)

	if dryRun {
		invocation, err := launcher.DryRun(spec)
		if err != nil {
			return err
		}
		for _, entry := range invocation.Env {
			fmt.Println(entry)
		}
		fmt.Println(strings.Join(invocation.Argv, " "))
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, err := launcher.Launch(ctx, spec)
	if run != nil {
		fmt.Printf("%s  %s  %s\n", run.ID, run.Name, run.Status)
	}
	return err
}

// train <recipe>: launch a training run from a recipe file.
func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <recipe>",
		Short: "Launch a training run from a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return launchRecipe(cmd, args[0], domain.ModeTrain)
		},
	}
	cmd.Flags().StringArrayVar(&extraOverrides, "set", nil, "extra override as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the driver command instead of running it")
	return cmd
}
