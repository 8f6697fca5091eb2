// Package recognize serves recognition requests from the result cache when
// possible and runs the pipeline otherwise.
package recognize

import (
	"context"
	"time"

	"github.com/park285/fenscan/internal/board"
	"github.com/park285/fenscan/internal/cache"
	"github.com/park285/fenscan/internal/fen"
	"github.com/park285/fenscan/internal/pipeline"
	"go.uber.org/zap"
)

// ResultCache is satisfied by *cache.Store.
type ResultCache interface {
	Get(ctx context.Context, key string) (*cache.Entry, error)
	Put(ctx context.Context, key string, e *cache.Entry) error
}

// Runner is satisfied by *pipeline.Pipeline.
type Runner interface {
	RunBytes(ctx context.Context, data []byte) (pipeline.Result, error)
}

type Outcome struct {
	ID       string
	FEN      string
	Grid     board.Grid
	Cached   bool
	Duration time.Duration
}

type Service struct {
	runner      Runner
	cache       ResultCache
	orientation board.Orientation
	logger      *zap.Logger
}

// NewService wires the pipeline runner with an optional cache. orientation
// must match the pipeline's so that cache keys stay distinct.
func NewService(runner Runner, rc ResultCache, orientation board.Orientation, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, cache: rc, orientation: orientation, logger: logger}
}

// Recognize returns the FEN for an uploaded image. Cache failures are logged
// and otherwise ignored.
func (s *Service) Recognize(ctx context.Context, data []byte) (Outcome, error) {
	start := time.Now()
	key := cache.Key(data, s.orientation.String())

	if s.cache != nil {
		entry, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("result cache read failed", zap.Error(err))
		} else if entry != nil {
			if grid, derr := fen.Decode(entry.FEN); derr == nil {
				return Outcome{ID: entry.ID, FEN: entry.FEN, Grid: grid, Cached: true, Duration: time.Since(start)}, nil
			}
			s.logger.Warn("discarding malformed cache entry", zap.String("key", key))
		}
	}

	res, err := s.runner.RunBytes(ctx, data)
	if err != nil {
		return Outcome{}, err
	}

	if s.cache != nil {
		entry := &cache.Entry{FEN: res.FEN, ID: res.ID, Orientation: s.orientation.String(), CreatedAt: time.Now().UTC()}
		if err := s.cache.Put(ctx, key, entry); err != nil {
			s.logger.Warn("result cache write failed", zap.Error(err))
		}
	}
	return Outcome{ID: res.ID, FEN: res.FEN, Grid: res.Grid, Duration: time.Since(start)}, nil
}
