package logging

import (
	"log/slog"
	"os"
)

// Service holds the process-wide logger.
type Service struct {
	Logger *slog.Logger
}

var DefaultService *Service

// InitLogger initializes the global logger and installs it as the
// slog default.
func InitLogger(logDir string, retentionWeeks int) {
	DefaultService = &Service{Logger: SetupLogger(logDir, retentionWeeks)}
	slog.SetDefault(DefaultService.Logger)
}

func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level helpers. Safe before InitLogger: they fall back to a
// console logger.

func Info(msg string, args ...any) {
	if DefaultService == nil || DefaultService.Logger == nil {
		fallback(slog.LevelInfo).Info(msg, args...)
		return
	}
	DefaultService.Logger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if DefaultService == nil || DefaultService.Logger == nil {
		fallback(slog.LevelWarn).Warn(msg, args...)
		return
	}
	DefaultService.Logger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if DefaultService == nil || DefaultService.Logger == nil {
		fallback(slog.LevelError).Error(msg, args...)
		return
	}
	DefaultService.Logger.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	if DefaultService == nil || DefaultService.Logger == nil {
		fallback(slog.LevelDebug).Debug(msg, args...)
		return
	}
	DefaultService.Logger.Debug(msg, args...)
}
