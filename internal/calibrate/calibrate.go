// Package calibrate fits a nearest-centroid classifier from rendered boards.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/park285/fenscan/internal/board"
	"github.com/park285/fenscan/internal/classify"
	"github.com/park285/fenscan/internal/fen"
	"github.com/park285/fenscan/internal/render"
	"github.com/park285/fenscan/internal/segment"
	"go.uber.org/zap"
)

const (
	defaultPositions = 6
	defaultDensity   = 0.45
)

// ErrSegmentation is returned when the starting position itself cannot be
// segmented. Random positions that fail are skipped instead.
var ErrSegmentation = errors.New("calibrate: rendered board was not segmented")

type Options struct {
	// Positions is the number of random positions rendered in addition to the
	// starting position.
	Positions int
	// Seed makes the random positions reproducible.
	Seed uint64
	// Density is the chance that a random square holds a piece.
	Density float64
	// SquareSizes lists the cell sizes to render each position at. Empty
	// means the renderer default only.
	SquareSizes []int
	// Segment configures the segmenter; the zero value selects
	// segment.DefaultOptions.
	Segment  segment.Options
	Renderer render.BoardRenderer
	Logger   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Positions < 0 {
		o.Positions = 0
	} else if o.Positions == 0 {
		o.Positions = defaultPositions
	}
	if o.Density <= 0 || o.Density > 1 {
		o.Density = defaultDensity
	}
	if o.Segment == (segment.Options{}) {
		o.Segment = segment.DefaultOptions()
	}
	if len(o.SquareSizes) == 0 {
		o.SquareSizes = []int{0}
	}
	if o.Renderer == nil {
		o.Renderer = render.NewSVGBoardRenderer()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Report summarises a calibration run.
type Report struct {
	Boards   int
	Skipped  int
	Samples  int
	Accuracy float64
	Duration time.Duration
}

// Calibrate renders the starting position and opts.Positions random
// positions, segments each image and fits a centroid model on the crops.
// Accuracy is measured on the same crops.
func Calibrate(ctx context.Context, opts Options) (*classify.Model, Report, error) {
	opts = opts.withDefaults()
	start := time.Now()
	seg := segment.New(opts.Segment, opts.Logger)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	grids := make([]board.Grid, 0, opts.Positions+1)
	grids = append(grids, board.StartingGrid())
	for i := 0; i < opts.Positions; i++ {
		grids = append(grids, RandomGrid(rng, opts.Density))
	}

	var (
		samples []classify.Sample
		report  Report
	)
	for gi, g := range grids {
		for _, size := range opts.SquareSizes {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
			squares, err := renderSquares(ctx, opts.Renderer, seg, g, size)
			if err != nil {
				return nil, report, err
			}
			if squares == nil {
				if gi == 0 {
					return nil, report, fmt.Errorf("%w: starting position at size %d", ErrSegmentation, size)
				}
				opts.Logger.Warn("calibration board skipped", zap.Int("board", gi), zap.Int("square_size", size))
				report.Skipped++
				continue
			}
			for i := range squares {
				samples = append(samples, classify.Sample{Square: squares[i], Label: g[i]})
			}
			report.Boards++
		}
	}

	model, err := classify.FitCentroids(samples)
	if err != nil {
		return nil, report, err
	}
	report.Samples = len(samples)
	report.Accuracy = Accuracy(model, samples)
	report.Duration = time.Since(start)
	opts.Logger.Info("calibration complete",
		zap.Int("boards", report.Boards),
		zap.Int("skipped", report.Skipped),
		zap.Int("samples", report.Samples),
		zap.Float64("accuracy", report.Accuracy),
		zap.Duration("duration", report.Duration),
	)
	return model, report, nil
}

func renderSquares(ctx context.Context, r render.BoardRenderer, seg *segment.Segmenter, g board.Grid, size int) ([]board.Square, error) {
	img, err := r.RenderImage(ctx, fen.ToBoard(g), render.Options{SquareSize: size})
	if err != nil {
		return nil, fmt.Errorf("render board: %w", err)
	}
	squares := seg.Divide(img)
	if len(squares) != board.SquareCount {
		return nil, nil
	}
	return squares, nil
}

// RandomGrid fills each square with a uniformly chosen piece with the given
// probability. The result need not be a legal position.
func RandomGrid(rng *rand.Rand, density float64) board.Grid {
	var g board.Grid
	for i := range g {
		if rng.Float64() >= density {
			continue
		}
		g[i] = board.Label(1 + rng.IntN(board.LabelCount-1))
	}
	return g
}

// Accuracy returns the share of samples the model labels correctly.
func Accuracy(m *classify.Model, samples []classify.Sample) float64 {
	if m == nil || len(samples) == 0 {
		return 0
	}
	squares := make([]board.Square, len(samples))
	for i := range samples {
		squares[i] = samples[i].Square
	}
	preds := m.PredictDetailed(squares)
	if len(preds) != len(samples) {
		return 0
	}
	var ok int
	for i, p := range preds {
		if p.Label == samples[i].Label {
			ok++
		}
	}
	return float64(ok) / float64(len(samples))
}
