package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	hookDescription string
	hookAuthor      string
)

// hooks list|add|enable|disable|remove: manage Lua launch hooks.
func hooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Manage Lua launch hooks",
	}
	cmd.AddCommand(hooksListCmd(), hooksAddCmd(), hooksEnableCmd(), hooksDisableCmd(), hooksRemoveCmd())
	return cmd
}

func hooksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered hooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hookData, err := launcher.Repo.GetHooks()
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "NAME\tENABLED\tAUTHOR\tDESCRIPTION")
			for _, hook := range hookData {
				fmt.Fprintf(writer, "%s\t%t\t%s\t%s\n", hook.Name, hook.Enabled, hook.Author, hook.Description)
			}
			return writer.Flush()
		},
	}
}

func hooksAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <file.lua>",
		Short: "Register a hook from a Lua file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("reading hook source : %w", err)
			}
			id, err := launcher.Repo.CreateHook(args[0], hookDescription, hookAuthor, string(source))
			if err != nil {
				return err
			}
			fmt.Printf("registered %s (%s)\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().StringVar(&hookDescription, "description", "", "what the hook does")
	cmd.Flags().StringVar(&hookAuthor, "author", "", "hook author")
	return cmd
}

func hooksEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>",
		Short: "Enable a hook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return launcher.Repo.SetHookEnabled(args[0], true)
		},
	}
}

func hooksDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a hook without removing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return launcher.Repo.SetHookEnabled(args[0], false)
		},
	}
}

func hooksRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a hook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return launcher.Repo.RemoveHook(args[0])
		},
	}
}
