package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/park285/fenscan/internal/board"
)

// Segment tunes board detection.
type Segment struct {
	MaxDimension int     `toml:"max_dimension"`
	MinContrast  float64 `toml:"min_contrast"`
	Inset        float64 `toml:"inset"`
}

type AppConfig struct {
	Listen    string `toml:"listen"`
	ModelPath string `toml:"model_path"`

	RedisURL    string `toml:"redis_url"`
	CacheTTLSec int    `toml:"cache_ttl"`
	DatabaseURL string `toml:"database_url"`

	MaxUploadBytes    int    `toml:"max_upload_bytes"`
	RequestTimeoutSec int    `toml:"request_timeout"`
	MessagesDir       string `toml:"messages_dir"`

	Orientation   string  `toml:"orientation"`
	MinConfidence float64 `toml:"min_confidence"`
	Segment       Segment `toml:"segment"`
}

func Default() AppConfig {
	return AppConfig{
		Listen:            ":8080",
		CacheTTLSec:       3600,
		MaxUploadBytes:    10 << 20,
		RequestTimeoutSec: 15,
		Orientation:       "white",
		Segment: Segment{
			MaxDimension: 800,
			MinContrast:  2.5,
			Inset:        0.04,
		},
	}
}

// Load builds the configuration from defaults, the TOML file named by
// FENSCAN_CONFIG (if any) and environment overrides, in that order.
func Load() (*AppConfig, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("FENSCAN_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile is Load with an explicit file path; env still wins.
func LoadFile(path string) (*AppConfig, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("FENSCAN_LISTEN")); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("FENSCAN_MODEL_PATH")); v != "" {
		c.ModelPath = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FENSCAN_MESSAGES_DIR")); v != "" {
		c.MessagesDir = v
	}
	if v := strings.TrimSpace(os.Getenv("FENSCAN_ORIENTATION")); v != "" {
		c.Orientation = v
	}
	if n, ok := envInt("FENSCAN_CACHE_TTL"); ok {
		c.CacheTTLSec = n
	}
	if n, ok := envInt("FENSCAN_MAX_UPLOAD_BYTES"); ok && n > 0 {
		c.MaxUploadBytes = n
	}
	if n, ok := envInt("FENSCAN_REQUEST_TIMEOUT"); ok && n > 0 {
		c.RequestTimeoutSec = n
	}
	if n, ok := envInt("FENSCAN_SEGMENT_MAX_DIM"); ok && n > 0 {
		c.Segment.MaxDimension = n
	}
	if f, ok := envFloat("FENSCAN_MIN_CONFIDENCE"); ok {
		c.MinConfidence = f
	}
	if f, ok := envFloat("FENSCAN_SEGMENT_MIN_CONTRAST"); ok {
		c.Segment.MinContrast = f
	}
	if f, ok := envFloat("FENSCAN_SEGMENT_INSET"); ok {
		c.Segment.Inset = f
	}
}

// unparsable values are ignored and the previous setting kept
func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen address is required")
	}
	if _, err := board.ParseOrientation(c.Orientation); err != nil {
		return fmt.Errorf("orientation: %w", err)
	}
	if c.CacheTTLSec < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %d", c.CacheTTLSec)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.RequestTimeoutSec <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %d", c.RequestTimeoutSec)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be within [0,1], got %v", c.MinConfidence)
	}
	if c.Segment.MaxDimension < 64 {
		return fmt.Errorf("segment.max_dimension must be at least 64, got %d", c.Segment.MaxDimension)
	}
	if c.Segment.MinContrast <= 1 {
		return fmt.Errorf("segment.min_contrast must exceed 1, got %v", c.Segment.MinContrast)
	}
	if c.Segment.Inset < 0 || c.Segment.Inset >= 0.5 {
		return fmt.Errorf("segment.inset must be within [0,0.5), got %v", c.Segment.Inset)
	}
	return nil
}

// RequireModel is checked by binaries that run inference locally.
func (c *AppConfig) RequireModel() error {
	if strings.TrimSpace(c.ModelPath) == "" {
		return errors.New("FENSCAN_MODEL_PATH is required")
	}
	return nil
}

func (c *AppConfig) OrientationValue() board.Orientation {
	o, _ := board.ParseOrientation(c.Orientation)
	return o
}

func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
