package logger

import (
	"io"
	"log/slog"
	"os"
)

var Logger *slog.Logger

// InitLogger initializes structured JSON logging. Debug mode lowers the level
// and adds source locations.
func InitLogger(ginMode string) {
	Logger = New(os.Stdout, ginMode)
	if ginMode == "debug" {
		Logger.Debug("Structured logging initialized", "level", slog.LevelDebug.String())
	} else {
		Logger.Info("Structured logging initialized", "level", slog.LevelInfo.String())
	}
}

func New(w io.Writer, ginMode string) *slog.Logger {
	level := slog.LevelInfo
	if ginMode == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: ginMode == "debug",
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Helper functions for common log operations
func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
