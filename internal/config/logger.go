package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// NewLogger builds the arbor logger described by the logging configuration.
// Console output is used when no output is configured.
func NewLogger(cfg LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	console := len(cfg.Output) == 0
	for _, output := range cfg.Output {
		switch output {
		case "console", "stdout":
			console = true
		case "file":
			if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
				fmt.Printf("Warning: Failed to create logs directory: %v\n", err)
				console = true
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   cfg.File,
				TimeFormat: "15:04:05",
				MaxSize:    100 * 1024 * 1024, // 100 MB
				MaxBackups: 3,
				TextOutput: true,
			})
		}
	}

	if console {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05",
			TextOutput: true,
		})
	}

	return logger.WithLevelFromString(cfg.Level)
}
