package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

var (
	// Logger is the process-wide structured logger.
	Logger *slog.Logger

	// Verbose reports whether debug-level output is enabled.
	Verbose bool
)

func init() {
	Setup(false, false, os.Stderr)
}

// Setup configures the package logger. Debug records are only emitted when
// verbose is set. A nil writer falls back to stderr.
func Setup(verbose, jsonOutput bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	Verbose = verbose

	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "bstest",
		ReportTimestamp: verbose,
	})
	if jsonOutput {
		handler.SetFormatter(log.JSONFormatter)
	}

	Logger = slog.New(handler)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}
