package main

import (
	"log/slog"

	"blackbird/internal/config"
	"blackbird/internal/logging"
)

// commandContext carries lazily initialized configuration and logging shared
// by every command.
type commandContext struct {
	configFlag    string
	logLevelFlag  string
	logFormatFlag string

	cfg    *config.Config
	logger *slog.Logger
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	path := c.configFlag
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if c.logLevelFlag != "" {
		cfg.LogLevel = c.logLevelFlag
	}
	if c.logFormatFlag != "" {
		cfg.LogFormat = c.logFormatFlag
	}
	c.cfg = &cfg
	return cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}
