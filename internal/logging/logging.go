// Package logging builds the zerolog logger shared by the server and the
// command-line scanner.
//
// Console output always goes to stderr: stdout carries the MCP protocol and
// must stay clean. When a log file is configured, JSON entries are also
// written to it through a size-rotated lumberjack writer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ironsheep/docscan-mcp/internal/config"
)

const timeFormat = "2006-01-02 15:04:05.000"

// consoleWriter wraps zerolog.ConsoleWriter to satisfy zerolog.LevelWriter.
// It reports len(p) because the console form differs in length from the
// JSON entry it was given, and zerolog treats that as a short write.
type consoleWriter struct {
	zerolog.ConsoleWriter
}

func (c consoleWriter) WriteLevel(_ zerolog.Level, p []byte) (int, error) {
	_, err := c.ConsoleWriter.Write(p)
	return len(p), err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup creates a logger writing human-readable lines to stderr and, if
// cfg.File is set, JSON lines to a rotating log file. The returned closer
// flushes and closes the file and must be called on shutdown.
func Setup(cfg config.Log) (zerolog.Logger, io.Closer, error) {
	return New(cfg, os.Stderr)
}

// New is Setup with an explicit console destination.
func New(cfg config.Log, console io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	writers := []io.Writer{consoleWriter{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: timeFormat,
		NoColor:    true,
	}}}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     30,
		}
		writers = append(writers, lj)
		closer = lj
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

// ParseLevel converts a level name such as "debug" or "WARN" to a zerolog
// level. Unknown names and the empty string are errors.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// Since is a helper for the "elapsed" field.
func Since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Microsecond)
}
