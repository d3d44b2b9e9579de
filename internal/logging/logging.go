// Package logging builds the slog loggers used across funclen.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Fields is a set of structured attributes attached to a log record.
type Fields map[string]any

// Config represents logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Output io.Writer
}

// New validates cfg and returns a logger writing to cfg.Output (stderr when nil).
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}
}

// ParseLevel accepts debug|info|warn|error in any case. Empty means info.
func ParseLevel(v string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", v)
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Component scopes l to a named component. A nil logger yields Discard.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With(slog.String("component", name))
}

// Info logs msg with fields sorted by key.
func Info(ctx context.Context, l *slog.Logger, msg string, fields Fields) {
	log(ctx, l, slog.LevelInfo, msg, fields)
}

func Debug(ctx context.Context, l *slog.Logger, msg string, fields Fields) {
	log(ctx, l, slog.LevelDebug, msg, fields)
}

func Warn(ctx context.Context, l *slog.Logger, msg string, fields Fields) {
	log(ctx, l, slog.LevelWarn, msg, fields)
}

// ErrorWithError logs msg at error level with err under the "error" key.
func ErrorWithError(ctx context.Context, l *slog.Logger, err error, msg string, fields Fields) {
	f := make(Fields, len(fields)+1)
	for k, v := range fields {
		f[k] = v
	}
	if err != nil {
		f["error"] = err.Error()
	}
	log(ctx, l, slog.LevelError, msg, f)
}

func log(ctx context.Context, l *slog.Logger, level slog.Level, msg string, fields Fields) {
	if l == nil || !l.Enabled(ctx, level) {
		return
	}
	l.LogAttrs(ctx, level, msg, attrs(fields)...)
}

func attrs(fields Fields) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
