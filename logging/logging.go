// Package logging configures the logrus standard logger for harness binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Config selects level, format and destination. An empty File logs to
// stderr.
type Config struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Formatter returns the formatter for format, "text" or "json".
func Formatter(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &log.TextFormatter{TimestampFormat: timestampFormat, FullTimestamp: true}, nil
	case "json":
		return &log.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: log.FieldMap{
				log.FieldKeyTime: "timestamp",
				log.FieldKeyMsg:  "message",
			},
		}, nil
	}

	return nil, fmt.Errorf("unsupported log format: %s", format)
}

// Output returns the writer for cfg. File output is rotated by lumberjack
// and mirrored to stdout at debug level.
func Output(cfg Config) (io.Writer, error) {
	if cfg.File == "" {
		return os.Stderr, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	if strings.EqualFold(cfg.Level, "debug") {
		return io.MultiWriter(os.Stdout, rotated), nil
	}

	return rotated, nil
}

// Setup applies cfg to the standard logger.
func Setup(cfg Config) error {
	level := log.InfoLevel

	if cfg.Level != "" {
		var err error
		if level, err = log.ParseLevel(cfg.Level); err != nil {
			return err
		}
	}

	formatter, err := Formatter(cfg.Format)
	if err != nil {
		return err
	}

	out, err := Output(cfg)
	if err != nil {
		return err
	}

	log.SetLevel(level)
	log.SetFormatter(formatter)
	log.SetOutput(out)

	return nil
}
