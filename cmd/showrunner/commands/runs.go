package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var reportOut string

// runs list|show|report: inspect recorded runs.
func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}
	cmd.AddCommand(runsListCmd(), runsShowCmd(), runsReportCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := launcher.Repo.GetRuns()
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tMODE\tSTATUS\tSTARTED")
			for _, run := range runs {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
					run.ID, run.Name, run.Mode, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return writer.Flush()
		},
	}
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its captured output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing run id : %w", err)
			}
			run, err := launcher.Repo.GetRun(id)
			if err != nil {
				return err
			}
			fmt.Printf("Name:        %s\n", run.Name)
			fmt.Printf("Mode:        %s\n", run.Mode)
			fmt.Printf("Recipe:      %s\n", run.Recipe)
			fmt.Printf("Status:      %s\n", run.Status)
			fmt.Printf("Init method: %s\n", run.InitMethod)
			fmt.Printf("Output dir:  %s\n", run.OutputDir)
			fmt.Printf("Seed:        %d\n", run.Seed)
			if run.ExitCode != nil {
				fmt.Printf("Exit code:   %d\n", *run.ExitCode)
			}
			for key, value := range run.Overrides {
				fmt.Printf("Override:    %s %s\n", key, value)
			}

			output, err := launcher.Repo.GetOutput(id)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Println("--- output ---")
				fmt.Print(output)
			}
			return nil
		},
	}
}

func runsReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write an HTML report of all runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportOut == "" {
				return launcher.WriteReport(os.Stdout)
			}
			file, err := os.Create(reportOut)
			if err != nil {
				return fmt.Errorf("creating report file : %w", err)
			}
			defer file.Close()
			return launcher.WriteReport(file)
		},
	}
	cmd.Flags().StringVar(&reportOut, "out", "", "write the report to a file instead of stdout")
	return cmd
}
