package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// rotatingWriter writes to one log file per calendar day.
type rotatingWriter struct {
	dir     string
	prefix  string
	file    *os.File
	fileDay string
	mu      sync.Mutex
}

func newRotatingWriter(dir, prefix string) *rotatingWriter {
	return &rotatingWriter{dir: dir, prefix: prefix}
}

// Write implements io.Writer, rotating when the local date changes.
func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := time.Now().Format("2006-01-02")
	if w.file == nil || w.fileDay != day {
		if err := w.rotate(day); err != nil {
			return 0, err
		}
	}

	return w.file.Write(p)
}

func (w *rotatingWriter) rotate(day string) error {
	if w.file != nil {
		w.file.Close()
	}

	name := filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.prefix, day))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	w.file = file
	w.fileDay = day
	return nil
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// CreateLogger creates a JSON logger writing to daily rotating files under
// logDir. If the directory cannot be created, it falls back to stdout.
func CreateLogger(logLevel LogLevel, logDir string, fileName string) Logger {
	var level slog.Level
	switch logLevel {
	case LogLevelDebug:
		level = slog.LevelDebug
	case LogLevelInfo:
		level = slog.LevelInfo
	case LogLevelWarn:
		level = slog.LevelWarn
	case LogLevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
	}

	return slog.New(slog.NewJSONHandler(newRotatingWriter(logDir, fileName), &slog.HandlerOptions{
		Level: level,
	}))
}

// nopLogger discards everything.
type nopLogger struct{}

// NopLogger is a singleton Logger that performs no operations. Components
// that receive a nil logger fall back to this.
var NopLogger Logger = &nopLogger{}

func (l *nopLogger) Info(msg string, args ...any)  {}
func (l *nopLogger) Warn(msg string, args ...any)  {}
func (l *nopLogger) Error(msg string, args ...any) {}
func (l *nopLogger) Debug(msg string, args ...any) {}
