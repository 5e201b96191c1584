package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var Log *slog.Logger

var (
	sinkMu   sync.Mutex
	sinkFile *os.File
)

// ParseLevel maps a config level string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the global logger. sink is either empty (stdout) or
// "file:<path>"; format is "text" (default) or "json".
func Init(level, format, sink string) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	var w io.Writer = os.Stdout
	if strings.HasPrefix(sink, "file:") {
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
		} else {
			closeSinkLocked()
			sinkFile = f
			w = f
		}
	}
	Log = New(w, level, format)
}

// New builds a logger without touching the global one.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Sync closes a file sink if one was attached.
func Sync() {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	closeSinkLocked()
}

func closeSinkLocked() {
	if sinkFile != nil {
		_ = sinkFile.Sync()
		_ = sinkFile.Close()
		sinkFile = nil
	}
}

func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}

// LogConfigSummary prints a titled list of config facts on one line each.
func LogConfigSummary(title string, items []string) {
	if Log == nil {
		return
	}
	Log.Info(title, "items", len(items))
	for _, it := range items {
		Log.Info(title, "item", it)
	}
}
