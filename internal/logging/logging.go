// Package logging wires the process-wide structured logger used by the
// store adapter, the hierarchy builder, the planners and the harness.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.RWMutex
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Set replaces the process-wide logger. Tests use this to redirect output
// to a buffer.
func Set(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// L returns the current process-wide logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLevel adjusts verbosity without replacing the handler, for the CLI's
// debug flag.
func SetLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
