package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"showrunner/doctor"
)

var showGPUs bool

// doctor: verify the driver's python environment and CUDA devices.
func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify the driver's python environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			python := "python"
			if launcher.Config != nil && launcher.Config.PythonBin != "" {
				python = launcher.Config.PythonBin
			}

			statuses, err := doctor.Check(cmd.Context(), python, nil)
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "PACKAGE\tWANTED\tINSTALLED\tSTATE")
			for _, status := range statuses {
				wanted := status.Wanted
				if wanted == "" {
					wanted = "any"
				}
				installed := status.Installed
				if installed == "" {
					installed = "-"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", status.Name, wanted, installed, status.State)
			}
			if err := writer.Flush(); err != nil {
				return err
			}

			if showGPUs {
				inventory, err := doctor.GPUs(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Driver %s, CUDA %s\n", inventory.DriverVersion, inventory.CUDAVersion)
				for i, gpu := range inventory.GPUs {
					fmt.Printf("GPU %d: %s (%s used of %s)\n", i, gpu.Name, gpu.MemoryUsed, gpu.MemoryTotal)
				}
			}

			if !doctor.Healthy(statuses) {
				return fmt.Errorf("environment is missing required packages")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showGPUs, "gpus", false, "also inventory CUDA devices via nvidia-smi")
	return cmd
}
