package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"escucha/internal/config"
	"escucha/internal/logging"
	"escucha/internal/storage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withDB(fn func(cfg *config.Config, db *storage.DB) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(cfg, db)
}

func (c *commandContext) newLogger(cfg *config.Config) *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "escucha.log")},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}
