package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/ports"
)

// sink is shared by a logger and every child created with With.
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level ports.Level
	json  bool
	time  bool
	label bool
	now   func() time.Time
}

// ConsoleLogger writes entries as text lines or JSON objects.
type ConsoleLogger struct {
	sink   *sink
	fields []ports.Field
}

// ConsoleLoggerOption configures a ConsoleLogger.
type ConsoleLoggerOption func(*sink)

// WithOutput sets the destination (default os.Stderr).
func WithOutput(w io.Writer) ConsoleLoggerOption {
	return func(s *sink) { s.out = w }
}

// WithLevel sets the minimum level (default Info).
func WithLevel(level ports.Level) ConsoleLoggerOption {
	return func(s *sink) { s.level = level }
}

// WithJSONFormat switches to one JSON object per line.
func WithJSONFormat(enabled bool) ConsoleLoggerOption {
	return func(s *sink) { s.json = enabled }
}

// WithTimestamp toggles the timestamp.
func WithTimestamp(enabled bool) ConsoleLoggerOption {
	return func(s *sink) { s.time = enabled }
}

// WithLevelLabel toggles the level label.
func WithLevelLabel(enabled bool) ConsoleLoggerOption {
	return func(s *sink) { s.label = enabled }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ConsoleLoggerOption {
	return func(s *sink) { s.now = now }
}

// NewConsoleLogger creates a console logger.
func NewConsoleLogger(opts ...ConsoleLoggerOption) *ConsoleLogger {
	s := &sink{
		out:   os.Stderr,
		level: ports.LevelInfo,
		time:  true,
		label: true,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return &ConsoleLogger{sink: s}
}

// New builds the process logger from configuration values.
func New(level string, jsonFormat bool, w io.Writer) (*ConsoleLogger, error) {
	lvl, err := ports.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewConsoleLogger(WithOutput(w), WithLevel(lvl), WithJSONFormat(jsonFormat)), nil
}

func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.write(ctx, ports.LevelDebug, msg, fields)
}

func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.write(ctx, ports.LevelInfo, msg, fields)
}

func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.write(ctx, ports.LevelWarn, msg, fields)
}

func (l *ConsoleLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.write(ctx, ports.LevelError, msg, fields)
}

// With returns a child logger. Children share output and level.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	merged := make([]ports.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &ConsoleLogger{sink: l.sink, fields: merged}
}

func (l *ConsoleLogger) Level() ports.Level {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return l.sink.level
}

func (l *ConsoleLogger) SetLevel(level ports.Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

func (l *ConsoleLogger) write(_ context.Context, level ports.Level, msg string, fields []ports.Field) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if level < s.level {
		return
	}

	all := make([]ports.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	var line string
	if s.json {
		line = s.formatJSON(level, msg, all)
	} else {
		line = s.formatText(level, msg, all)
	}
	if line == "" {
		return
	}
	_, _ = io.WriteString(s.out, line+"\n")
}

func (s *sink) formatJSON(level ports.Level, msg string, fields []ports.Field) string {
	entry := make(map[string]any, len(fields)+3)
	for _, f := range fields {
		entry[f.Key] = jsonValue(f.Value)
	}
	if s.time {
		entry["time"] = s.now().UTC().Format(time.RFC3339)
	}
	if s.label {
		entry["level"] = level.String()
	}
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		return ""
	}
	return string(data)
}

func (s *sink) formatText(level ports.Level, msg string, fields []ports.Field) string {
	var b strings.Builder
	if s.time {
		b.WriteString(s.now().Format("15:04:05"))
		b.WriteByte(' ')
	}
	if s.label {
		fmt.Fprintf(&b, "[%s] ", level)
	}
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(textValue(f.Value))
	}
	return b.String()
}

func jsonValue(v any) any {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

func textValue(v any) string {
	s := fmt.Sprint(jsonValue(v))
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}

var _ ports.Logger = (*ConsoleLogger)(nil)
