// Package logging builds the process logger: a readable console log for the
// operator and a verbose JSON file for post mortems.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// File receives every entry from debug level on, truncated on start.
	// Empty disables the file.
	File         string
	ConsoleLevel zapcore.Level
	// Console defaults to stderr.
	Console io.Writer
}

// New returns the logger and a close function that syncs and closes the log
// file.
func New(cfg Config) (*zap.Logger, func() error, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	consoleEncoder := zap.NewDevelopmentEncoderConfig()
	consoleEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleEncoder.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.AddSync(console), cfg.ConsoleLevel),
	}

	var file *os.File
	if cfg.File != "" {
		var err error
		file, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", cfg.File, err)
		}
		fileEncoder := zap.NewProductionEncoderConfig()
		fileEncoder.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), zapcore.AddSync(file), zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	closeFn := func() error {
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}
