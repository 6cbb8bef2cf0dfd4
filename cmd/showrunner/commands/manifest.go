package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"showrunner/manifest"
)

var (
	manifestMode    string
	manifestClasses int
	manifestSep     string
	manifestPrefix  string
	manifestViews   int
	manifestCrops   int
	manifestSample  int
)

// manifest <dir>: load a dataset split and spot-check its videos.
func manifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest <dir>",
		Short: "Load and verify a dataset manifest split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := manifest.Load(args[0], manifest.Mode(manifestMode), manifest.Options{
				Separator:        manifestSep,
				PathPrefix:       manifestPrefix,
				NumClasses:       manifestClasses,
				NumEnsembleViews: manifestViews,
				NumSpatialCrops:  manifestCrops,
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s split: %d clips\n", loaded.Mode, len(loaded.Clips))

			if manifestSample != 0 {
				if err := loaded.Verify(cmd.Context(), manifestSample); err != nil {
					return err
				}
				fmt.Println("verification passed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestMode, "mode", "train", "split to load (train, val or test)")
	cmd.Flags().IntVar(&manifestClasses, "classes", 400, "number of label classes")
	cmd.Flags().StringVar(&manifestSep, "sep", " ", "path/label separator")
	cmd.Flags().StringVar(&manifestPrefix, "prefix", "", "path prefix joined onto every video path")
	cmd.Flags().IntVar(&manifestViews, "views", 1, "ensemble views per video in test mode")
	cmd.Flags().IntVar(&manifestCrops, "crops", 1, "spatial crops per view in test mode")
	cmd.Flags().IntVar(&manifestSample, "sample", 0, "verify the first N videos, -1 for all, 0 to skip")
	return cmd
}
