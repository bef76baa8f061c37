package app

import (
	"strings"

	"github.com/goout-id/goout/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server block, defaulting to info/json.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{Level: level, Format: cfg.LogFormat})
}
