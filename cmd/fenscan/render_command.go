package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/park285/fenscan/internal/fen"
	"github.com/park285/fenscan/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var output string
	var flip bool
	var coordinates bool
	var squareSize int

	cmd := &cobra.Command{
		Use:   "render [placement]",
		Short: "Draw a FEN piece placement as a PNG board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			placement := fen.StartingPosition
			if len(args) == 1 {
				placement = strings.TrimSpace(args[0])
			}
			// a full FEN is accepted; only the placement field is drawn
			if i := strings.IndexByte(placement, ' '); i >= 0 {
				placement = placement[:i]
			}
			g, err := fen.Decode(placement)
			if err != nil {
				return err
			}
			data, err := render.NewSVGBoardRenderer().RenderPNG(cmd.Context(), fen.ToBoard(g), render.Options{
				SquareSize:  squareSize,
				Flip:        flip,
				Coordinates: coordinates,
			})
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			ctx.log().Debug("board rendered")
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path (stdout when empty)")
	cmd.Flags().BoolVar(&flip, "flip", false, "Draw the board from Black's side")
	cmd.Flags().BoolVar(&coordinates, "coordinates", false, "Print rank and file labels")
	cmd.Flags().IntVar(&squareSize, "square-size", 0, "Square edge in pixels (default 72)")
	return cmd
}
