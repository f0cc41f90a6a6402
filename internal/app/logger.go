package app

import (
	"strings"

	"github.com/charlesng35/campushub/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server level and logging section,
// defaulting to info.
func ConfigureLogging(cfg *Config) error {
	if cfg == nil {
		return logger.Init("info")
	}

	level := strings.TrimSpace(cfg.Server.LogLevel)
	if level == "" {
		level = "info"
	}

	return logger.InitWithOptions(logger.Options{
		Level:      level,
		Format:     cfg.Logging.Format,
		File:       strings.TrimSpace(cfg.Logging.File),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
}
