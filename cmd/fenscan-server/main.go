package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/fenscan/internal/config"
	"github.com/park285/fenscan/internal/obslog"
	"github.com/park285/fenscan/internal/scanbuilder"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	deps, err := scanbuilder.New(cfg, logger)
	if err != nil {
		logger.Fatal("init error", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Fatal("listen error", zap.String("addr", cfg.Listen), zap.Error(err))
	}
	logger.Info("fenscan server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("model", cfg.ModelPath),
		zap.String("orientation", cfg.OrientationValue().String()),
		zap.Bool("cache", deps.Cache != nil),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- deps.Server.Serve(ln) }()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Error("server stopped", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := deps.Server.Shutdown(ctx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
