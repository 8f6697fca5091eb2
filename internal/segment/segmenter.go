// Package segment locates the 8×8 grid of a chessboard in a photograph and
// crops the 64 cells.
package segment

import (
	"image"

	"github.com/park285/fenscan/internal/board"
	"go.uber.org/zap"
)

const (
	defaultMaxDimension = 800
	defaultMinCell      = 8
	defaultMinContrast  = 2.5
	defaultInset        = 0.04
	defaultStepFraction = 0.25
)

// Locator narrows the search to the region that holds the board.
type Locator interface {
	Locate(img image.Image) (image.Rectangle, bool)
}

type Options struct {
	// MaxDimension bounds the longer edge of the working copy used for the
	// grid search. Crops are always taken from the original image.
	MaxDimension int
	// MinCell is the smallest accepted cell pitch in working pixels.
	MinCell int
	// MinContrast is the required ratio between the mean grid-line response
	// and the mean response across the board span.
	MinContrast float64
	// Inset trims this fraction of the cell from each side before resizing.
	Inset float64
	// Locator is optional.
	Locator Locator
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = defaultMaxDimension
	}
	if o.MinCell <= 0 {
		o.MinCell = defaultMinCell
	}
	if o.MinContrast <= 0 {
		o.MinContrast = defaultMinContrast
	}
	if o.Inset < 0 || o.Inset >= 0.5 {
		o.Inset = defaultInset
	}
	return o
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{Inset: defaultInset}.withDefaults()
}

// Segmenter is immutable after construction and safe for concurrent use.
type Segmenter struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Segmenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Segmenter{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options.
func (s *Segmenter) Options() Options { return s.opts }

// Lattice holds the nine grid lines of each axis in source image coordinates.
type Lattice struct {
	X [9]int
	Y [9]int
	// Contrast is the weaker of the two axis confidence ratios.
	Contrast float64
}

// Cell returns the rectangle of grid index i (0 = a8 for a White-bottom
// photograph).
func (l Lattice) Cell(i int) image.Rectangle {
	row, col := i/8, i%8
	return image.Rect(l.X[col], l.Y[row], l.X[col+1], l.Y[row+1])
}

// Bounds returns the outer board rectangle.
func (l Lattice) Bounds() image.Rectangle {
	return image.Rect(l.X[0], l.Y[0], l.X[8], l.Y[8])
}

// Locate fits the board lattice. It returns false when no grid with enough
// contrast is found on either axis.
func (s *Segmenter) Locate(img image.Image) (Lattice, bool) {
	var lat Lattice
	if img == nil || img.Bounds().Empty() {
		return lat, false
	}
	region := img.Bounds()
	if s.opts.Locator != nil {
		if r, ok := s.opts.Locator.Locate(img); ok {
			region = r.Intersect(img.Bounds())
		}
	}
	if region.Dx() < 8*s.opts.MinCell || region.Dy() < 8*s.opts.MinCell {
		return lat, false
	}

	work := newLumaImage(img, region, s.opts.MaxDimension)
	xs, cx, okX := fitAxis(withFrameEdges(work.columnProfile()), work.scaleX, s.opts)
	ys, cy, okY := fitAxis(withFrameEdges(work.rowProfile()), work.scaleY, s.opts)
	s.logger.Debug("segment lattice",
		zap.Bool("x_ok", okX),
		zap.Bool("y_ok", okY),
		zap.Float64("x_contrast", cx),
		zap.Float64("y_contrast", cy),
	)
	if !okX || !okY {
		return lat, false
	}
	for k := 0; k < 9; k++ {
		lat.X[k] = region.Min.X + xs[k]
		lat.Y[k] = region.Min.Y + ys[k]
	}
	lat.Contrast = cx
	if cy < cx {
		lat.Contrast = cy
	}
	return lat, true
}

// Divide returns the 64 cell crops in grid index order, or an empty slice if
// the board cannot be located. The result is never padded.
func (s *Segmenter) Divide(img image.Image) []board.Square {
	lat, ok := s.Locate(img)
	if !ok {
		return nil
	}
	return CropCells(img, lat, s.opts.Inset)
}
