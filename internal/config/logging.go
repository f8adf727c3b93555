package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the console logger from the config: human-readable text
// on stderr and JSON lines in cfg.LogFile. verbose forces DEBUG on both.
// The returned cleanup closes the log file.
//
// Stdout is left alone so table and YAML output stays pipeable.
func SetupLogger(cfg Config, verbose bool) (*slog.Logger, func() error) {
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}

	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel(level)})

	if cfg.LogFile == "" {
		return slog.New(stderrHandler), func() error { return nil }
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		logger := slog.New(stderrHandler)
		logger.Warn("log file unavailable, logging to stderr only", "file", cfg.LogFile, "error", err)
		return logger, func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	logger := slog.New(slogmulti.Fanout(stderrHandler, fileHandler))

	return logger, file.Close
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: consoleLevel(level)}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
}

// consoleLevel keeps routine INFO chatter off the terminal unless the user
// asked for debug output; the log file still receives it.
func consoleLevel(level slog.Level) slog.Level {
	if level <= slog.LevelDebug {
		return level
	}
	return max(level, slog.LevelWarn)
}
