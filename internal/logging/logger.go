// Package logging defines the structured logger used across the service.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is a context-aware, structured logger. The variadic args are
// key-value pairs:
//
//	log.Info(ctx, "session started", "user", user, "date", date)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New returns a text logger at debug level for development and a JSON logger
// at info level otherwise.
func New(env string) Logger {
	if env == "development" {
		return FromSlog(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return FromSlog(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return FromSlog(slog.New(slog.DiscardHandler))
}

// FromSlog adapts l to Logger.
func FromSlog(l *slog.Logger) Logger {
	return slogLogger{l}
}

type slogLogger struct {
	*slog.Logger
}

func (s slogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelDebug, msg, args)
}

func (s slogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s slogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

func (s slogLogger) With(args ...any) Logger {
	return slogLogger{s.Logger.With(args...)}
}

func (s slogLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	s.Logger.Log(ctx, level, msg, args...)
}
