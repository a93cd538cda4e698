package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes leveled, component-tagged lines. All levels are written;
// there is no filtering.
type Logger struct {
	sessionID string
	component string
	out       *output
}

// output is shared by every Logger derived from the same Open/New call
type output struct {
	mu        sync.Mutex
	logger    *log.Logger
	file      *os.File
	path      string
	closeOnce sync.Once
}

// DefaultDir returns ~/.credbridge/logs
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".credbridge", "logs"), nil
}

// Open creates a logger writing to <dir>/<session-id>-credbridge.log and to
// any extra writers. If the file cannot be created it falls back to stderr
// and returns the error alongside the usable logger.
func Open(dir, component string, extra ...io.Writer) (*Logger, error) {
	sessionID := uuid.New().String()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fallback(sessionID, component, extra, fmt.Errorf("failed to create log directory: %w", err))
	}

	path := filepath.Join(dir, sessionID+"-credbridge.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fallback(sessionID, component, extra, fmt.Errorf("failed to open log file: %w", err))
	}

	writers := append([]io.Writer{file}, extra...)
	return &Logger{
		sessionID: sessionID,
		component: component,
		out: &output{
			logger: log.New(io.MultiWriter(writers...), "", 0),
			file:   file,
			path:   path,
		},
	}, nil
}

func fallback(sessionID, component string, extra []io.Writer, err error) (*Logger, error) {
	writers := []io.Writer{os.Stderr}
	for _, w := range extra {
		if w != os.Stderr {
			writers = append(writers, w)
		}
	}
	l := &Logger{
		sessionID: sessionID,
		component: component,
		out:       &output{logger: log.New(io.MultiWriter(writers...), "", 0)},
	}
	l.Warnf("file logging unavailable, using stderr: %v", err)
	return l, err
}

// New creates a logger writing to w
func New(w io.Writer, component string) *Logger {
	return &Logger{
		sessionID: uuid.New().String(),
		component: component,
		out:       &output{logger: log.New(w, "", 0)},
	}
}

// With returns a logger for another component sharing the same output
func (l *Logger) With(component string) *Logger {
	return &Logger{sessionID: l.sessionID, component: component, out: l.out}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.out.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) { l.write("WARN", format, v...) }

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// SessionID returns the id shared by every logger of this run
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Path returns the log file path, empty when not logging to a file
func (l *Logger) Path() string {
	return l.out.path
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.out.closeOnce.Do(func() {
		if l.out.file != nil {
			err = l.out.file.Close()
		}
	})
	return err
}
