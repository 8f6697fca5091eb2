package scanbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/fenscan/internal/cache"
	"github.com/park285/fenscan/internal/classify"
	"github.com/park285/fenscan/internal/config"
	"github.com/park285/fenscan/internal/games"
	"github.com/park285/fenscan/internal/msgcat"
	"github.com/park285/fenscan/internal/pipeline"
	"github.com/park285/fenscan/internal/recognize"
	"github.com/park285/fenscan/internal/segment"
	"github.com/park285/fenscan/internal/server"
	"go.uber.org/zap"
)

type Deps struct {
	Pipeline *pipeline.Pipeline
	Model    *classify.Model
	Cache    *cache.Store
	Repo     games.Repository
	Messages *msgcat.Catalog
	Service  *recognize.Service
	Server   *server.Server
}

// Close releases the cache and repository connections.
func (d *Deps) Close() error {
	var first error
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			first = err
		}
	}
	if d.Repo != nil {
		if err := d.Repo.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SegmentOptions maps the config section onto segmenter options and attaches
// the contour locator when the binary was built with it. An inset of zero is
// kept; out-of-range insets fall back to the segmenter default.
func SegmentOptions(cfg *config.AppConfig) segment.Options {
	opts := segment.DefaultOptions()
	if cfg.Segment.MaxDimension > 0 {
		opts.MaxDimension = cfg.Segment.MaxDimension
	}
	if cfg.Segment.MinContrast > 0 {
		opts.MinContrast = cfg.Segment.MinContrast
	}
	opts.Inset = cfg.Segment.Inset
	if segment.ContourLocatorAvailable() {
		opts.Locator = segment.NewContourLocator()
	}
	return opts
}

// NewPipeline loads the model and builds the recognition pipeline only.
func NewPipeline(cfg *config.AppConfig, logger *zap.Logger) (*pipeline.Pipeline, *classify.Model, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.RequireModel(); err != nil {
		return nil, nil, err
	}
	model, err := classify.Load(cfg.ModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}
	if cfg.MinConfidence > 0 {
		model = model.WithMinConfidence(cfg.MinConfidence)
	}
	seg := segment.New(SegmentOptions(cfg), logger.Named("segment"))
	p, err := pipeline.New(seg, model,
		pipeline.WithOrientation(cfg.OrientationValue()),
		pipeline.WithLogger(logger.Named("pipeline")),
	)
	if err != nil {
		return nil, nil, err
	}
	return p, model, nil
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p, model, err := NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps := &Deps{Pipeline: p, Model: model}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Cache (Redis optional)
	var rc recognize.ResultCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		store, err := cache.Open(ctx, cfg.RedisURL, cfg.CacheTTL())
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		deps.Cache = store
		rc = store
	} else {
		logger.Info("REDIS_URL not set; result cache disabled")
	}

	// Repository: empty URL keeps games in memory
	repo, err := games.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("init games repository: %w", err)
	}
	deps.Repo = repo

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	deps.Messages = msgs

	deps.Service = recognize.NewService(p, rc, cfg.OrientationValue(), logger.Named("recognize"))
	deps.Server = server.New(deps.Service, repo, msgs, server.Config{
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout(),
	}, logger.Named("http"))
	return deps, nil
}
