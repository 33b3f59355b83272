package vann

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with vann-specific context, per §10: the
// façade logs builds and Optimize runs at Info, and per-query
// outcomes at Debug; Graph.Save and LoadGraph do not log. Lower
// packages never log themselves.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is
// nil, it defaults to a text handler writing to stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text logs
// to stderr at the given level.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewJSONLogger creates a Logger that writes JSON logs to stderr at
// the given level.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger returns a Logger at an unreachable level, discarding all
// output. This is the default for library use so the engine stays
// silent unless a caller opts in via WithIndexLogger or
// WithSearcherLogger.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// LogBuild logs a graph build.
func (l *Logger) LogBuild(ctx context.Context, n, dim int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed", "n", n, "dim", dim, "error", err)
		return
	}
	l.InfoContext(ctx, "build completed", "n", n, "dim", dim, "duration", d)
}

// LogSave logs a graph save to disk.
func (l *Logger) LogSave(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed", "path", path, "error", err)
		return
	}
	l.InfoContext(ctx, "graph saved", "path", path)
}

// LogLoad logs a graph load from disk.
func (l *Logger) LogLoad(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed", "path", path, "error", err)
		return
	}
	l.InfoContext(ctx, "graph loaded", "path", path)
}

// LogOptimize logs an Optimize auto-tune run: the winning (po, pl)
// and how long the sweep took.
func (l *Logger) LogOptimize(ctx context.Context, po, pl int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "optimize failed", "error", err)
		return
	}
	l.InfoContext(ctx, "optimize completed", "po", po, "pl", pl, "duration", d)
}

// LogSearch logs a single search outcome.
func (l *Logger) LogSearch(ctx context.Context, k, found int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "search completed", "k", k, "found", found)
}
