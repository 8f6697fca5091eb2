package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/fenscan/internal/board"
	"github.com/park285/fenscan/internal/fen"
	"github.com/park285/fenscan/internal/fenclient"
	"github.com/park285/fenscan/internal/msgcat"
	"github.com/park285/fenscan/internal/pipeline"
	"github.com/park285/fenscan/internal/scanbuilder"
)

// scanFunc recognises one image and returns its piece placement.
type scanFunc func(ctx context.Context, name string, data []byte) (string, error)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var modelPath string
	var remote string
	var orientation string
	var showGrid bool
	var links bool

	cmd := &cobra.Command{
		Use:   "scan <image>...",
		Short: "Print the FEN piece placement of board photographs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scan, err := newScanner(ctx, modelPath, remote, orientation)
			if err != nil {
				return err
			}
			msgs := ctx.messages()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				placement, err := scan(cmd.Context(), filepath.Base(path), data)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, scanErrorText(msgs, err))
					continue
				}

				line := msgs.Text("scan.result", map[string]any{"FEN": placement}, placement)
				if len(args) > 1 {
					line = path + "\t" + line
				}
				fmt.Fprintln(out, line)
				if links {
					analysis := strings.ReplaceAll(placement, " ", "_") + "_w_-_-_0_1"
					if url := msgs.Text("scan.analysis", map[string]any{"Path": analysis}, ""); url != "" {
						fmt.Fprintln(out, url)
					}
				}
				if showGrid {
					g, err := fen.Decode(placement)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, renderGrid(g, colorize))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images could not be read", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Classifier model file (overrides FENSCAN_MODEL_PATH)")
	cmd.Flags().StringVar(&remote, "remote", "", "Send images to a fenscan server at this base URL instead of running locally")
	cmd.Flags().StringVar(&orientation, "orientation", "", "Side at the bottom of the photo: white or black (local only)")
	cmd.Flags().BoolVar(&showGrid, "grid", false, "Print the recognised board as a table")
	cmd.Flags().BoolVar(&links, "links", false, "Print an analysis board link for each position")
	return cmd
}

func newScanner(ctx *commandContext, modelPath, remote, orientation string) (scanFunc, error) {
	if remote = strings.TrimSpace(remote); remote != "" {
		client := fenclient.NewClient(remote)
		return func(c context.Context, name string, data []byte) (string, error) {
			res, err := client.Predict(c, name, data)
			if err != nil {
				return "", err
			}
			return res.FEN, nil
		}, nil
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	local := *cfg
	if modelPath != "" {
		local.ModelPath = modelPath
	}
	if orientation != "" {
		if _, err := board.ParseOrientation(orientation); err != nil {
			return nil, err
		}
		local.Orientation = orientation
	}
	p, _, err := scanbuilder.NewPipeline(&local, ctx.log())
	if err != nil {
		return nil, err
	}
	return func(c context.Context, name string, data []byte) (string, error) {
		res, err := p.RunBytes(c, data)
		if err != nil {
			ctx.log().Debug("scan failed", zap.String("file", name), zap.Error(err))
			return "", err
		}
		return res.FEN, nil
	}, nil
}

// scanErrorText prefers the server's message for remote failures and the
// catalog text for local pipeline failures.
func scanErrorText(msgs *msgcat.Catalog, err error) string {
	var apiErr *fenclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	kind := pipeline.KindName(err)
	return msgs.Text(msgcat.ErrorKey(kind), nil, err.Error())
}
