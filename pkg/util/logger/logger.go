package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger represents a component
// for writing messages to log.
type Logger struct {
	*zap.Logger
	lvl zap.AtomicLevel
}

// Prm groups Logger's parameters.
type Prm struct {
	// support runtime rereading
	level zapcore.Level
}

// SetLevelString sets the minimum logging level.
//
// Returns error if s is not a string representation of zap.Level
// value (see zapcore.Level docs).
func (p *Prm) SetLevelString(s string) error {
	return p.level.UnmarshalText([]byte(s))
}

// NewLogger constructs a new zap logger instance. Constructing with nil
// parameters is safe: default values will be used then.
//
// Logger is built from production logging configuration with console
// encoding, ISO8601 time format and stack traces for fatal messages only.
func NewLogger(prm *Prm) (*Logger, error) {
	if prm == nil {
		prm = new(Prm)
	}

	lvl := zap.NewAtomicLevelAt(prm.level)

	c := zap.NewProductionConfig()
	c.Level = lvl
	c.Encoding = "console"
	c.Sampling = nil
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lZap, err := c.Build(
		zap.AddStacktrace(zap.NewAtomicLevelAt(zap.FatalLevel)),
	)
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return &Logger{Logger: lZap, lvl: lvl}, nil
}

// Reload sets the minimum logging level of the already built Logger.
func (l *Logger) Reload(prm Prm) {
	l.lvl.SetLevel(prm.level)
}
