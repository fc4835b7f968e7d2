// Package logging configures slog for travelrag. Records are JSON, written
// to a size-rotated file under ~/.travelrag/logs and optionally to stderr.
//
// The MCP server speaks JSON-RPC on stdout, so serve mode never writes
// logs to stdout or stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogFileName is the active log file inside the log directory.
const LogFileName = "travelrag.log"

// Config configures Setup.
type Config struct {
	// Level is debug, info, warn or error.
	Level string

	// FilePath is the log file. Empty disables file logging.
	FilePath string

	// MaxSizeMB triggers rotation (default: 10).
	MaxSizeMB int

	// MaxFiles rotated files are kept (default: 5).
	MaxFiles int

	WriteToStderr bool
}

// DefaultConfig logs info and above to the default path and stderr.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// ServeConfig is DefaultConfig without stderr, for the stdio MCP server.
func ServeConfig(level string) Config {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.WriteToStderr = false
	return cfg
}

// DefaultLogDir returns ~/.travelrag/logs.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".travelrag", "logs")
	}
	return filepath.Join(home, ".travelrag", "logs")
}

// DefaultLogPath returns the active log file in DefaultLogDir.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), LogFileName)
}

// Setup builds a JSON logger and returns it with a cleanup that flushes and
// closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	cleanup := func() {}

	if cfg.FilePath != "" {
		w, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, w)
		cleanup = func() {
			_ = w.Sync()
			_ = w.Close()
		}
	}
	if cfg.WriteToStderr {
		writers = append(writers, os.Stderr)
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return slog.New(handler), cleanup, nil
}

// SetupDefault runs Setup and installs the logger as slog's default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// ParseLevel maps a level name to slog.Level; unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
