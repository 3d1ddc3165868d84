// Package logging builds per-subsystem slog loggers that share one backing
// writer, optionally duplicated into a rotated log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig configures a LogBackend.
type LogConfig struct {
	// LogFile is the path of the rotated log file. Empty logs to stdout
	// only.
	LogFile string
	// DebugLevel is the initial level for every subsystem logger, one of
	// trace, debug, info, warn, error, critical, off. Empty means info.
	DebugLevel string
	// MaxLogFiles bounds how many rolled files the rotator keeps.
	MaxLogFiles int
	// MaxBufferLines bounds the in-memory tail kept for inspection.
	MaxBufferLines int
}

// LogBackend fans log output out to stdout, an optional rotating file, and
// an in-memory tail buffer. The zero value logs to stdout at the info level.
type LogBackend struct {
	mu       sync.Mutex
	backend  *slog.Backend
	rotator  *rotator.Rotator
	loggers  map[string]slog.Logger
	level    slog.Level
	levelSet bool

	bufferMax int
	buffer    []string
}

// logWriter tees writes from the slog backend into the backend's sinks.
type logWriter struct {
	b *LogBackend
}

func (w logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	w.b.mu.Lock()
	if w.b.rotator != nil {
		w.b.rotator.Write(p)
	}
	if w.b.bufferMax > 0 {
		w.b.buffer = append(w.b.buffer, string(p))
		if len(w.b.buffer) > w.b.bufferMax {
			w.b.buffer = w.b.buffer[len(w.b.buffer)-w.b.bufferMax:]
		}
	}
	w.b.mu.Unlock()
	return len(p), nil
}

// NewLogBackend creates a backend from the config.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	b := &LogBackend{
		loggers:   make(map[string]slog.Logger),
		level:     slog.LevelInfo,
		levelSet:  true,
		bufferMax: cfg.MaxBufferLines,
	}
	if cfg.DebugLevel != "" {
		level, ok := slog.LevelFromString(cfg.DebugLevel)
		if !ok {
			return nil, fmt.Errorf("invalid debug level %q", cfg.DebugLevel)
		}
		b.level = level
	}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		r, err := rotator.New(cfg.LogFile, 32*1024, false, cfg.MaxLogFiles)
		if err != nil {
			return nil, fmt.Errorf("failed to create log rotator: %w", err)
		}
		b.rotator = r
	}
	b.backend = slog.NewBackend(logWriter{b})
	return b, nil
}

// Logger returns the logger for a subsystem tag, creating it on first use.
// Repeated calls with the same tag return the same logger.
func (b *LogBackend) Logger(subsystem string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loggers == nil {
		b.loggers = make(map[string]slog.Logger)
	}
	if l, ok := b.loggers[subsystem]; ok {
		return l
	}
	if b.backend == nil {
		b.backend = slog.NewBackend(logWriter{b})
	}
	l := b.backend.Logger(subsystem)
	if b.levelSet {
		l.SetLevel(b.level)
	} else {
		l.SetLevel(slog.LevelInfo)
	}
	b.loggers[subsystem] = l
	return l
}

// SetLevel changes the level of every existing and future logger.
func (b *LogBackend) SetLevel(level slog.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = level
	b.levelSet = true
	for _, l := range b.loggers {
		l.SetLevel(level)
	}
}

// LastLogLines returns up to n of the most recent log lines when buffering
// is enabled.
func (b *LogBackend) LastLogLines(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.buffer) {
		n = len(b.buffer)
	}
	out := make([]string, n)
	copy(out, b.buffer[len(b.buffer)-n:])
	return out
}

// Close flushes and closes the rotated log file, if any.
func (b *LogBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rotator == nil {
		return nil
	}
	err := b.rotator.Close()
	b.rotator = nil
	return err
}
