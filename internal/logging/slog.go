package logging

import (
	"context"
	"io"
	"log/slog"
)

// slogLogger adapts *slog.Logger to Logger. Every call goes through the
// Context variants so handlers can pick up trace data from ctx.
type slogLogger struct {
	l *slog.Logger
}

func fromHandler(h slog.Handler) Logger {
	return slogLogger{l: slog.New(h)}
}

// NewJSON is the server default: one JSON object per line on w.
func NewJSON(w io.Writer) Logger {
	return fromHandler(slog.NewJSONHandler(w, nil))
}

// NewText writes logfmt style lines at level and above. The device CLI uses
// it on stderr so log lines stay apart from the REPL output.
func NewText(w io.Writer, level slog.Level) Logger {
	return fromHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (s slogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s slogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s slogLogger) With(args ...any) Logger {
	return slogLogger{l: s.l.With(args...)}
}
