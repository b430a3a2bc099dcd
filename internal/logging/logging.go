// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"chronicler/internal/config"
)

const timeFormat = "2006-01-02 15:04:05.000"

// New returns a logger writing to stdout and, when cfg.File is set, also to
// that file in append mode. The returned closer releases the file.
func New(cfg config.LoggingConfig) (*log.Logger, io.Closer, error) {
	return newLogger(os.Stdout, cfg)
}

func newLogger(stdout io.Writer, cfg config.LoggingConfig) (*log.Logger, io.Closer, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		l, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %q: %w", cfg.File, err)
		}
		out = io.MultiWriter(stdout, f)
		closer = f
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           level,
		Formatter:       formatter,
	})
	return logger, closer, nil
}

func parseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return log.TextFormatter, fmt.Errorf("unknown log format %q", s)
}

// Discard is a logger that drops everything.
func Discard() *log.Logger { return log.New(io.Discard) }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
