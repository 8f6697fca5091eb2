package scanbuilder

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/fenscan/internal/board"
	"github.com/park285/fenscan/internal/classify"
	"github.com/park285/fenscan/internal/config"
	"github.com/park285/fenscan/internal/segment"
)

func writeModel(t *testing.T) string {
	t.Helper()
	var plain, striped board.Square
	for i := range plain.Pix {
		plain.Pix[i] = 120
		if (i/3)%2 == 0 {
			striped.Pix[i] = 250
		}
	}
	m, err := classify.FitCentroids([]classify.Sample{
		{Square: plain, Label: board.Empty},
		{Square: striped, Label: board.WhitePawn},
	})
	if err != nil {
		t.Fatalf("FitCentroids: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func TestNewWithoutRedis(t *testing.T) {
	cfg := config.Default()
	cfg.ModelPath = writeModel(t)
	cfg.MinConfidence = 0.3
	deps, err := New(&cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer deps.Close()
	if deps.Cache != nil {
		t.Fatalf("cache should be disabled")
	}
	if deps.Server == nil || deps.Service == nil || deps.Repo == nil || deps.Messages == nil {
		t.Fatalf("incomplete deps: %+v", deps)
	}
	if deps.Model.MinConfidence() != 0.3 {
		t.Fatalf("min confidence = %v", deps.Model.MinConfidence())
	}
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.ModelPath = writeModel(t)
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	cfg.DatabaseURL = "sqlite://" + filepath.Join(t.TempDir(), "games.db")
	deps, err := New(&cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if deps.Cache == nil {
		t.Fatalf("expected redis cache")
	}
	if err := deps.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRequiresModel(t *testing.T) {
	cfg := config.Default()
	if _, err := New(&cfg, nil); err == nil || !strings.Contains(err.Error(), "FENSCAN_MODEL_PATH") {
		t.Fatalf("expected model path error, got %v", err)
	}
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.json")
	if _, err := New(&cfg, nil); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestSegmentOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Segment.MaxDimension = 640
	cfg.Segment.MinContrast = 3
	opts := SegmentOptions(&cfg)
	if opts.MaxDimension != 640 || opts.MinContrast != 3 || opts.Inset != 0.04 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestSegmentOptionsKeepZeroInset(t *testing.T) {
	cfg := config.Default()
	cfg.Segment.Inset = 0
	opts := SegmentOptions(&cfg)
	if opts.Inset != 0 {
		t.Fatalf("inset = %v, want 0", opts.Inset)
	}
	if got := segment.New(opts, nil).Options().Inset; got != 0 {
		t.Fatalf("segmenter inset = %v, want 0", got)
	}
}
