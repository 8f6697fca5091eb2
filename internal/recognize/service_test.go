package recognize

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/fenscan/internal/board"
	"github.com/park285/fenscan/internal/cache"
	"github.com/park285/fenscan/internal/fen"
	"github.com/park285/fenscan/internal/pipeline"
)

type fakeRunner struct {
	calls int
	err   error
}

func (f *fakeRunner) RunBytes(ctx context.Context, data []byte) (pipeline.Result, error) {
	f.calls++
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return pipeline.Result{ID: "run-id", FEN: fen.StartingPosition, Grid: board.StartingGrid()}, nil
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*cache.Entry, error) { return nil, errors.New("down") }
func (brokenCache) Put(context.Context, string, *cache.Entry) error   { return errors.New("down") }

func TestRecognizeUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	store := cache.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)

	runner := &fakeRunner{}
	svc := NewService(runner, store, board.WhiteBottom, nil)
	ctx := context.Background()

	first, err := svc.Recognize(ctx, []byte("image"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if first.Cached || first.FEN != fen.StartingPosition {
		t.Fatalf("unexpected first outcome %+v", first)
	}
	second, err := svc.Recognize(ctx, []byte("image"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !second.Cached || second.ID != "run-id" || second.Grid != board.StartingGrid() {
		t.Fatalf("expected cached outcome, got %+v", second)
	}
	if runner.calls != 1 {
		t.Fatalf("pipeline ran %d times", runner.calls)
	}

	if _, err := svc.Recognize(ctx, []byte("other image")); err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if runner.calls != 2 {
		t.Fatalf("different upload should miss the cache")
	}
}

func TestRecognizeIgnoresCacheErrors(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewService(runner, brokenCache{}, board.WhiteBottom, nil)
	out, err := svc.Recognize(context.Background(), []byte("x"))
	if err != nil || out.FEN != fen.StartingPosition {
		t.Fatalf("cache errors must not fail requests: %v %+v", err, out)
	}
}

func TestRecognizeFailureNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	store := cache.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)

	runner := &fakeRunner{err: &pipeline.Error{Kind: pipeline.ErrDetection, Stage: pipeline.StageSegment}}
	svc := NewService(runner, store, board.WhiteBottom, nil)
	if _, err := svc.Recognize(context.Background(), []byte("x")); !errors.Is(err, pipeline.ErrDetection) {
		t.Fatalf("expected detection error, got %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("failure was cached: %v", keys)
	}
}
