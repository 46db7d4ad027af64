// Package logging wraps zap for the coordination layer.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger is a zap logger that knows how to tag cores and invocations.
type Logger struct {
	*zap.Logger
}

// Config selects the zap preset, its level and where output goes. An empty
// Level keeps the preset's own.
type Config struct {
	Level       string
	Development bool
	OutputPaths []string
}

// New builds a logger from zap's production or development preset.
func New(cfg Config) (*Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = level
	}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	zc.Sampling = nil

	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: l}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil || l.Logger == nil {
		return NewNop()
	}
	return l
}

// Core returns a child logger tagged with a core identity.
func (l *Logger) Core(core string) *Logger {
	return &Logger{Logger: l.With(zap.String("core", core))}
}

// Invocation returns a child logger tagged with a pattern invocation.
func (l *Logger) Invocation(pattern, id string) *Logger {
	return &Logger{Logger: l.With(zap.String("pattern", pattern), zap.String("invocation", id))}
}
