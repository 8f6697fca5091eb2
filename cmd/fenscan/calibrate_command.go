package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/fenscan/internal/calibrate"
)

func newCalibrateCommand(ctx *commandContext) *cobra.Command {
	var output string
	var positions int
	var seed uint64
	var sizes []int
	var minConfidence float64

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Fit a classifier model from rendered boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			model, report, err := calibrate.Calibrate(cmd.Context(), calibrate.Options{
				Positions:   positions,
				Seed:        seed,
				SquareSizes: sizes,
				Logger:      ctx.log(),
			})
			if err != nil {
				return err
			}
			if minConfidence > 0 {
				model = model.WithMinConfidence(minConfidence)
			}
			if err := model.Save(output); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Boards", "Skipped", "Samples", "Accuracy", "Time"},
				[][]string{{
					fmt.Sprint(report.Boards),
					fmt.Sprint(report.Skipped),
					fmt.Sprint(report.Samples),
					fmt.Sprintf("%.2f%%", report.Accuracy*100),
					report.Duration.Round(time.Millisecond).String(),
				}},
			))
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Model file to write")
	cmd.Flags().IntVar(&positions, "positions", 6, "Random positions in addition to the starting position")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().IntSliceVar(&sizes, "square-size", nil, "Square sizes to render, repeatable (default 72)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Confidence gate stored in the model")
	return cmd
}
