// Package observability sets up structured logging and carries per-command log
// context (command name, pass id) through context.Context.
package observability

import (
	"context"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/statique/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	Command string
	PassID  string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithCommand records the CLI command that owns ctx.
func WithCommand(ctx context.Context, command string) context.Context {
	lc := extractLogContext(ctx)
	lc.Command = command
	return context.WithValue(ctx, logContextKey, lc)
}

// WithPassID records the synchronization pass ctx belongs to.
func WithPassID(ctx context.Context, passID string) context.Context {
	lc := extractLogContext(ctx)
	lc.PassID = passID
	return context.WithValue(ctx, logContextKey, lc)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	var attrs []slog.Attr
	if lc.Command != "" {
		attrs = append(attrs, slog.String("command", lc.Command))
	}
	if lc.PassID != "" {
		attrs = append(attrs, logfields.PassID(lc.PassID))
	}
	return attrs
}

// ContextHandler adds the LogContext of each record's context to the record.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := getLogAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds the process logger: text or json on w at level, with context
// attributes added to every record logged through a *Context method.
func NewLogger(w io.Writer, level slog.Leveler, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(ContextHandler{h})
}
