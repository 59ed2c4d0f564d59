package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ReasoningLogger captures model reasoning traces separately from the
// structured event stream: chain-of-thought content is bulky, free-form,
// and only wanted when debugging model behavior, so it gets its own
// daily-rotated plain-text files instead of bloating the session JSONL.
type ReasoningLogger struct {
	dir     string
	file    *os.File
	path    string
	mu      sync.Mutex
	lastDay string
}

// NewReasoningLogger creates a logger writing reasoning-YYYY-MM-DD.log
// files under dir.
func NewReasoningLogger(dir string) (*ReasoningLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create reasoning log dir: %w", err)
	}

	l := &ReasoningLogger{dir: dir}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.rotateLocked(); err != nil {
		return nil, err
	}
	return l, nil
}

// Write appends one timestamped reasoning line.
func (l *ReasoningLogger) Write(content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureTodayLocked(); err != nil {
		return err
	}
	if l.file == nil {
		return nil
	}

	_, err := fmt.Fprintf(l.file, "[%s] %s\n", time.Now().Format("15:04:05"), content)
	return err
}

// WriteBlock appends a delimited reasoning block attributed to a model and
// session, for traces spanning many lines.
func (l *ReasoningLogger) WriteBlock(model, sessionID, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureTodayLocked(); err != nil {
		return err
	}
	if l.file == nil {
		return nil
	}

	_, err := fmt.Fprintf(l.file, "\n=== [%s] model=%s session=%s ===\n%s\n",
		time.Now().Format("15:04:05"), model, sessionID, content)
	return err
}

// Path returns the current day's log file path.
func (l *ReasoningLogger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Close closes the current file; the logger is unusable afterwards except
// that writes silently no-op.
func (l *ReasoningLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ensureTodayLocked rotates to a fresh file when the date rolled over since
// the last write.
func (l *ReasoningLogger) ensureTodayLocked() error {
	if time.Now().Format("2006-01-02") == l.lastDay {
		return nil
	}
	return l.rotateLocked()
}

// rotateLocked closes the previous day's file and opens today's.
func (l *ReasoningLogger) rotateLocked() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	today := time.Now().Format("2006-01-02")
	l.lastDay = today
	l.path = filepath.Join(l.dir, "reasoning-"+today+".log")

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open reasoning log: %w", err)
	}
	l.file = file
	return nil
}
