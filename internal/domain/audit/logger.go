package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger records and queries audit events.
type Logger interface {
	Log(ctx context.Context, event Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Close() error
}

// FileLoggerConfig configures a FileLogger.
type FileLoggerConfig struct {
	Dir string
	// MaxSize triggers rotation of the active file (default 10 MiB).
	MaxSize int64
	// MaxRotations is the number of rotated files kept (default 10).
	MaxRotations int
}

const activeLogName = "audit.jsonl"

// FileLogger appends events as JSON lines and rotates by size.
type FileLogger struct {
	mu        sync.Mutex
	dir       string
	maxSize   int64
	keep      int
	file      *os.File
	size      int64
	lastHash  string
	rotations int
}

// NewFileLogger opens (or creates) the active log in cfg.Dir.
func NewFileLogger(cfg FileLoggerConfig) (*FileLogger, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 << 20
	}
	if cfg.MaxRotations <= 0 {
		cfg.MaxRotations = 10
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	l := &FileLogger{dir: cfg.Dir, maxSize: cfg.MaxSize, keep: cfg.MaxRotations}
	last, err := l.readFile(l.activePath())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(last) > 0 {
		l.lastHash = last[len(last)-1].EventHash
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// Log seals event onto the chain and appends it.
func (l *FileLogger) Log(_ context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size >= l.maxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotate audit log: %w", err)
		}
	}

	event.Seal(l.lastHash)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	n, err := l.file.Write(append(data, '\n'))
	if err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	l.size += int64(n)
	l.lastHash = event.EventHash
	return nil
}

// Query returns matching events, newest first.
func (l *FileLogger) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	files, err := l.files()
	if err != nil {
		return nil, err
	}

	var out []Event
	for i := len(files) - 1; i >= 0; i-- {
		events, err := l.readFile(files[i])
		if err != nil {
			continue
		}
		for j := len(events) - 1; j >= 0; j-- {
			if !filter.Matches(events[j]) {
				continue
			}
			out = append(out, events[j])
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// Verify walks the active file and reports the first broken link.
func (l *FileLogger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readFile(l.activePath())
	if err != nil {
		return err
	}
	prev := ""
	for i, e := range events {
		if !e.VerifyHash() {
			return fmt.Errorf("audit event %d (%s) was modified", i, e.ID)
		}
		if i > 0 && e.PreviousHash != prev {
			return fmt.Errorf("audit event %d (%s) breaks the hash chain", i, e.ID)
		}
		prev = e.EventHash
	}
	return nil
}

// Close closes the active file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *FileLogger) activePath() string {
	return filepath.Join(l.dir, activeLogName)
}

func (l *FileLogger) open() error {
	f, err := os.OpenFile(l.activePath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}
	l.file = f
	l.size = info.Size()
	return nil
}

func (l *FileLogger) rotate() error {
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return err
		}
		l.file = nil
	}

	l.rotations++
	name := fmt.Sprintf("audit-%s-%03d.jsonl", time.Now().UTC().Format("20060102T150405"), l.rotations)
	if err := os.Rename(l.activePath(), filepath.Join(l.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}

	files, err := l.files()
	if err != nil {
		return err
	}
	rotated := files[:0]
	for _, f := range files {
		if filepath.Base(f) != activeLogName {
			rotated = append(rotated, f)
		}
	}
	if extra := len(rotated) - l.keep; extra > 0 {
		for _, f := range rotated[:extra] {
			_ = os.Remove(f)
		}
	}
	return l.open()
}

// files lists rotated logs oldest first, followed by the active log.
func (l *FileLogger) files() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var rotated []string
	active := false
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		if e.Name() == activeLogName {
			active = true
			continue
		}
		if strings.HasPrefix(e.Name(), "audit-") {
			rotated = append(rotated, filepath.Join(l.dir, e.Name()))
		}
	}
	sort.Strings(rotated)
	if active {
		rotated = append(rotated, l.activePath())
	}
	return rotated, nil
}

func (l *FileLogger) readFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// MemoryLogger keeps events in memory.
type MemoryLogger struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryLogger creates an empty MemoryLogger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Log seals and stores event.
func (l *MemoryLogger) Log(_ context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := ""
	if n := len(l.events); n > 0 {
		prev = l.events[n-1].EventHash
	}
	event.Seal(prev)
	l.events = append(l.events, event)
	return nil
}

// Query returns matching events, newest first.
func (l *MemoryLogger) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for i := len(l.events) - 1; i >= 0; i-- {
		if filter.Matches(l.events[i]) {
			out = append(out, l.events[i])
			if filter.Limit > 0 && len(out) >= filter.Limit {
				break
			}
		}
	}
	return out, nil
}

func (l *MemoryLogger) Close() error { return nil }

// Events returns every stored event in logging order.
func (l *MemoryLogger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events...)
}

// NullLogger drops everything.
type NullLogger struct{}

func NewNullLogger() *NullLogger { return &NullLogger{} }

func (NullLogger) Log(context.Context, Event) error { return nil }

func (NullLogger) Query(context.Context, QueryFilter) ([]Event, error) { return nil, nil }

func (NullLogger) Close() error { return nil }

var (
	_ Logger = (*FileLogger)(nil)
	_ Logger = (*MemoryLogger)(nil)
	_ Logger = NullLogger{}
)
