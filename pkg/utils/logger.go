package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
// eventMode raises the production level to warn so public kiosks do not log per-request branches.
func NewLogger(debug, eventMode bool) (*zap.Logger, error) {
	if debug && !eventMode {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if eventMode {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return cfg.Build()
}

// OrNop returns logger, or a no-op logger when logger is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
