package config

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFilePath returns the path to the backend log file.
func LogFilePath() string {
	return filepath.Join("logs", "journal-api.log")
}

// NewLogger builds the application logger. Output goes to stdout and, when
// the log file can be opened, to logs/journal-api.log as well.
func NewLogger(c *Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if !c.IsProduction() && c.GinMode != "release" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stdout"}

	var fileErr error
	if err := os.MkdirAll(filepath.Dir(LogFilePath()), os.ModePerm); err != nil {
		fileErr = err
	} else {
		zc.OutputPaths = append(zc.OutputPaths, LogFilePath())
	}

	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	if fileErr != nil {
		log.Warn("failed to create logs directory", zap.Error(fileErr))
	}
	return log, nil
}
