// Package logging implements ports.Logger for the console and for tests.
package logging

import (
	"context"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// NopLogger discards everything.
type NopLogger struct {
	level ports.Level
}

// NewNopLogger creates a NopLogger.
func NewNopLogger() *NopLogger {
	return &NopLogger{level: ports.LevelInfo}
}

func (l *NopLogger) Debug(context.Context, string, ...ports.Field) {}
func (l *NopLogger) Info(context.Context, string, ...ports.Field)  {}
func (l *NopLogger) Warn(context.Context, string, ...ports.Field)  {}
func (l *NopLogger) Error(context.Context, string, ...ports.Field) {}

// With returns l.
func (l *NopLogger) With(...ports.Field) ports.Logger { return l }

func (l *NopLogger) Level() ports.Level         { return l.level }
func (l *NopLogger) SetLevel(level ports.Level) { l.level = level }

var _ ports.Logger = (*NopLogger)(nil)
