package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/park285/fenscan/internal/board"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FENSCAN_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" || cfg.Segment.MaxDimension != 800 || cfg.OrientationValue() != board.WhiteBottom {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CacheTTL() != time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.CacheTTL())
	}
	if err := cfg.RequireModel(); err == nil {
		t.Fatalf("expected model path requirement")
	}
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fenscan.toml")
	body := `
listen = ":9000"
model_path = "/models/a.json"
orientation = "black"
min_confidence = 0.4

[segment]
inset = 0.1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FENSCAN_CONFIG", path)
	t.Setenv("FENSCAN_MODEL_PATH", "/models/b.json")
	t.Setenv("FENSCAN_REQUEST_TIMEOUT", "3")
	t.Setenv("FENSCAN_SEGMENT_MAX_DIM", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Fatalf("file value lost: %q", cfg.Listen)
	}
	if cfg.ModelPath != "/models/b.json" {
		t.Fatalf("env should override file, got %q", cfg.ModelPath)
	}
	if cfg.OrientationValue() != board.BlackBottom || cfg.MinConfidence != 0.4 || cfg.Segment.Inset != 0.1 {
		t.Fatalf("unexpected values %+v", cfg)
	}
	if cfg.RequestTimeout() != 3*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.RequestTimeout())
	}
	if cfg.Segment.MaxDimension != 800 {
		t.Fatalf("invalid env value should be ignored, got %d", cfg.Segment.MaxDimension)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*AppConfig){
		"orientation": func(c *AppConfig) { c.Orientation = "sideways" },
		"confidence":  func(c *AppConfig) { c.MinConfidence = 2 },
		"inset":       func(c *AppConfig) { c.Segment.Inset = 0.5 },
		"contrast":    func(c *AppConfig) { c.Segment.MinContrast = 1 },
		"upload":      func(c *AppConfig) { c.MaxUploadBytes = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestUnknownFileKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("colour = \"red\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
