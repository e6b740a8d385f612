// Package diaglog writes the diagnostic transcript of a deployment:
// every remote command, its outcome, and phase transitions. The file
// is what users attach to bug reports when a board misbehaves.
package diaglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents logging severity.
type Level int

const (
	// LevelDebug includes every remote command and its output.
	LevelDebug Level = iota
	// LevelInfo includes phase transitions and outcomes.
	LevelInfo
	// LevelWarn includes warnings about degraded behavior.
	LevelWarn
	// LevelError includes only failures.
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level string. Empty defaults to info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// maxRotatedFiles is how many rotated transcripts are kept around.
const maxRotatedFiles = 5

// Logger appends timestamped lines to a transcript file, rotating it
// when it grows past the configured size.
type Logger struct {
	mu     sync.Mutex
	writer io.Writer
	level  Level

	filePath    string
	maxSize     int64
	currentSize int64
}

// Config configures the logger.
type Config struct {
	Level    Level
	FilePath string
	// MaxSize is the file size in bytes that triggers rotation
	// (0 = no rotation).
	MaxSize int64
}

// New creates a Logger. An empty FilePath logs to stderr.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level:    cfg.Level,
		filePath: cfg.FilePath,
		maxSize:  cfg.MaxSize,
	}

	if cfg.FilePath == "" {
		l.writer = os.Stderr
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	if info, err := f.Stat(); err == nil {
		l.currentSize = info.Size()
	}
	l.writer = f

	return l, nil
}

// Discard returns a logger that drops everything. Useful as a default
// so callers never need a nil check.
func Discard() *Logger {
	return &Logger{writer: io.Discard, level: LevelError + 1}
}

// Close closes the logger.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.writer.(*os.File); ok && f != os.Stderr && f != os.Stdout {
		return f.Close()
	}
	return nil
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s [%s] %s\n",
		time.Now().Format(time.RFC3339),
		level.String(),
		fmt.Sprintf(format, args...))

	if l.maxSize > 0 && l.filePath != "" {
		l.currentSize += int64(len(line))
		if l.currentSize > l.maxSize {
			l.rotate()
		}
	}

	// Transcript write errors are non-fatal.
	_, _ = l.writer.Write([]byte(line))
}

func (l *Logger) rotate() {
	if f, ok := l.writer.(*os.File); ok {
		_ = f.Close()
	}

	rotated := l.filePath + "." + time.Now().Format("20060102-150405")
	_ = os.Rename(l.filePath, rotated)

	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		l.writer = os.Stderr
		return
	}
	l.writer = f
	l.currentSize = 0

	l.cleanupOldLogs()
}

func (l *Logger) cleanupOldLogs() {
	matches, err := filepath.Glob(l.filePath + ".*")
	if err != nil || len(matches) <= maxRotatedFiles {
		return
	}
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-maxRotatedFiles] {
		_ = os.Remove(old)
	}
}

// Debugf logs a debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Infof logs an info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warnf logs a warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Command records one remote command and its trimmed output.
func (l *Logger) Command(cmd, output string, err error) {
	out := strings.TrimSpace(output)
	if err != nil {
		l.log(LevelDebug, "remote command failed: %s: %v: %s", cmd, err, out)
		return
	}
	l.log(LevelDebug, "remote command: %s: %s", cmd, out)
}

// SetLevel changes the level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current level.
func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}
