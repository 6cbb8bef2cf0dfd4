package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"showrunner/checkpoint"
)

// extract <in> <out>: keep only the visual tower of a CLIP checkpoint.
func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <in.safetensors> <out.safetensors>",
		Short: "Extract the visual tower from a CLIP checkpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := checkpoint.ExtractVisual(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("wrote %d tensors to %s\n", count, args[1])
			return nil
		},
	}
}
