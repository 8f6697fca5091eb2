// Package pipeline runs decode, segmentation, classification and encoding in
// sequence and gates each stage on the size of the previous result.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/park285/fenscan/internal/board"
	"github.com/park285/fenscan/internal/fen"
	"go.uber.org/zap"
)

// Segmenter returns 64 crops in grid order, or fewer when no board is found.
type Segmenter interface {
	Divide(img image.Image) []board.Square
}

// Classifier returns one label per square, or a shorter slice on failure.
type Classifier interface {
	Predict(squares []board.Square) []board.Label
}

// Encoder turns 64 labels into a FEN placement string.
type Encoder func(labels []board.Label) (string, error)

// Result is a successful recognition.
type Result struct {
	ID          string
	FEN         string
	Grid        board.Grid
	Orientation board.Orientation
	Duration    time.Duration
}

type Option func(*Pipeline)

// WithOrientation tells the pipeline which side sits at the bottom of the
// photograph.
func WithOrientation(o board.Orientation) Option {
	return func(p *Pipeline) { p.orientation = o }
}

// WithEncoder replaces fen.EncodeLabels.
func WithEncoder(enc Encoder) Option {
	return func(p *Pipeline) {
		if enc != nil {
			p.encode = enc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline holds no per-request state and may be shared.
type Pipeline struct {
	segmenter   Segmenter
	classifier  Classifier
	encode      Encoder
	orientation board.Orientation
	logger      *zap.Logger
}

func New(seg Segmenter, cls Classifier, opts ...Option) (*Pipeline, error) {
	if seg == nil {
		return nil, fmt.Errorf("pipeline: segmenter is nil")
	}
	if cls == nil {
		return nil, fmt.Errorf("pipeline: classifier is nil")
	}
	p := &Pipeline{
		segmenter:   seg,
		classifier:  cls,
		encode:      fen.EncodeLabels,
		orientation: board.WhiteBottom,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RunBytes decodes data and runs the remaining stages.
func (p *Pipeline) RunBytes(ctx context.Context, data []byte) (Result, error) {
	img, format, err := Decode(data)
	if err != nil {
		p.logger.Info("pipeline decode failed", zap.Int("bytes", len(data)), zap.Error(err))
		return Result{}, err
	}
	p.logger.Debug("pipeline decoded", zap.String("format", format), zap.Stringer("bounds", img.Bounds()))
	return p.Run(ctx, img)
}

// Run recognises the board in img. No FEN is returned unless every stage
// succeeds.
func (p *Pipeline) Run(ctx context.Context, img image.Image) (Result, error) {
	start := time.Now()
	id := uuid.NewString()
	log := p.logger.With(zap.String("id", id))

	if img == nil || img.Bounds().Empty() {
		return Result{}, &Error{Kind: ErrDecode, Stage: StageDecode, Err: fmt.Errorf("no image")}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	squares := p.segmenter.Divide(img)
	if len(squares) < board.SquareCount {
		log.Info("board not detected", zap.Int("squares", len(squares)))
		return Result{}, &Error{Kind: ErrDetection, Stage: StageSegment, Count: len(squares)}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	labels := p.classifier.Predict(squares)
	if len(labels) != board.SquareCount {
		log.Warn("classification failed", zap.Int("squares", len(squares)), zap.Int("labels", len(labels)))
		return Result{}, &Error{Kind: ErrClassification, Stage: StageClassify, Count: len(labels)}
	}
	grid, err := board.GridFromLabels(labels)
	if err != nil {
		log.Warn("classification returned invalid labels", zap.Error(err))
		return Result{}, &Error{Kind: ErrClassification, Stage: StageClassify, Count: len(labels), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// The label grid follows image order; rotate it into board order.
	grid = grid.Normalize(p.orientation)
	placement, err := p.encode(grid[:])
	if err != nil {
		log.Error("encoder rejected labels", zap.Error(err))
		return Result{}, &Error{Kind: ErrEncoding, Stage: StageEncode, Count: len(labels), Err: err}
	}

	res := Result{
		ID:          id,
		FEN:         placement,
		Grid:        grid,
		Orientation: p.orientation,
		Duration:    time.Since(start),
	}
	log.Info("board recognised",
		zap.String("fen", placement),
		zap.Stringer("orientation", p.orientation),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}
