package main

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/fenscan/internal/config"
	"github.com/park285/fenscan/internal/msgcat"
	"github.com/park285/fenscan/internal/obslog"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.AppConfig
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verbose: verbose}
}

// ensureConfig loads the explicit file when --config is set and falls back
// to FENSCAN_CONFIG and the environment otherwise.
func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path != "" {
			c.config, c.configErr = config.LoadFile(path)
			return
		}
		c.config, c.configErr = config.Load()
	})
	return c.config, c.configErr
}

// log returns a stderr logger; stdout carries command output only.
func (c *commandContext) log() *zap.Logger {
	c.loggerOnce.Do(func() {
		level := "warn"
		if c.verbose != nil && *c.verbose {
			level = "debug"
		}
		l, err := obslog.Build(obslog.Config{
			Level:   level,
			Format:  "console",
			Console: true,
			Stdout:  os.Stderr,
		})
		if err != nil {
			l = zap.NewNop()
		}
		c.logger = l
	})
	return c.logger
}

func (c *commandContext) messages() *msgcat.Catalog {
	cfg, err := c.ensureConfig()
	dir := ""
	if err == nil {
		dir = cfg.MessagesDir
	}
	cat, err := msgcat.New(dir)
	if err != nil {
		c.log().Warn("message catalog unavailable", zap.Error(err))
		return nil
	}
	return cat
}
