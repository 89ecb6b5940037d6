package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// LogLevel is the configured minimum level, one of debug, info, warn or error
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// DefaultRetainedDays is how many daily log files are kept on disk
const DefaultRetainedDays = 14

const dayLayout = "2006-01-02"

// SlogLevel maps a configured level to its slog equivalent. Unknown values map to Info.
func (l LogLevel) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(string(l)))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// dailyLogFile appends to <dir>/<name>-YYYY-MM-DD.log, switching files when the local
// day changes and pruning files beyond the retention count.
type dailyLogFile struct {
	mu     sync.Mutex
	dir    string
	name   string
	retain int
	clock  func() time.Time
	day    string
	file   *os.File
}

func newDailyLogFile(dir, name string, retain int) *dailyLogFile {
	return &dailyLogFile{dir: dir, name: name, retain: retain, clock: time.Now}
}

func (f *dailyLogFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if day := f.clock().Format(dayLayout); day != f.day || f.file == nil {
		if err := f.open(day); err != nil {
			return 0, err
		}
	}
	return f.file.Write(p)
}

func (f *dailyLogFile) open(day string) error {
	file, err := os.OpenFile(f.path(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if f.file != nil {
		f.file.Close()
	}
	f.file, f.day = file, day
	f.prune()
	return nil
}

func (f *dailyLogFile) path(day string) string {
	return filepath.Join(f.dir, f.name+"-"+day+".log")
}

// prune removes the oldest log files of this logger once more than retain exist.
// The day stamp sorts chronologically as text.
func (f *dailyLogFile) prune() {
	if f.retain <= 0 {
		return
	}
	matches, err := filepath.Glob(filepath.Join(f.dir, f.name+"-????-??-??.log"))
	if err != nil || len(matches) <= f.retain {
		return
	}
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-f.retain] {
		os.Remove(old)
	}
}

func (f *dailyLogFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// CreateLogger creates a JSON logger writing to daily log files named after name in logDir,
// mirrored to stdout. Without a usable logDir it logs to stdout only.
func CreateLogger(logLevel LogLevel, logDir string, name string) Logger {
	return newLogger(logLevel, logDir, name, os.Stdout)
}

func newLogger(logLevel LogLevel, logDir string, name string, console io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel.SlogLevel()}
	out := console

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err == nil {
			out = io.MultiWriter(newDailyLogFile(logDir, name, DefaultRetainedDays), console)
		}
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

type nopLogger struct{}

// NopLogger discards everything. Packages fall back to it when given a nil Logger.
var NopLogger Logger = &nopLogger{}

func (l *nopLogger) Info(msg string, args ...any)  {}
func (l *nopLogger) Warn(msg string, args ...any)  {}
func (l *nopLogger) Error(msg string, args ...any) {}
func (l *nopLogger) Debug(msg string, args ...any) {}
