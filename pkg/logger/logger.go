package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger for the given level. Debug level or the "console"
// format switch to the console encoder, everything else logs JSON.
func New(level, format string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if lvl == zapcore.DebugLevel || strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewNop returns a sugared logger that discards everything. Handy in tests.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
