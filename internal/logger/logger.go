// Package logger builds the zap logger shared by the server and the seed command.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds the process logger. Log is a no-op logger until Init succeeds.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger backed by zap.NewNop.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces Log with a JSON production logger at level.
// Level names are case-insensitive; an empty level means info.
func (l *Logger) Init(level string) error {
	return l.build(zap.NewProductionConfig(), level, zapcore.InfoLevel)
}

// InitDevelopment replaces Log with a console logger at level, used by the CLI.
// An empty level means debug.
func (l *Logger) InitDevelopment(level string) error {
	return l.build(zap.NewDevelopmentConfig(), level, zapcore.DebugLevel)
}

func (l *Logger) build(cfg zap.Config, level string, fallback zapcore.Level) error {
	lvl := fallback
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = zl
	return nil
}
