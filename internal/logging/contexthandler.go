package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes appended to every record at handle time.
type ContextProvider func() []slog.Attr

// SimContext reports the run name and the tick currently being simulated.
func SimContext(run string, tick func() uint64) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.String("run", run),
			slog.Uint64("tick", tick()),
		}
	}
}

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.inner.WithAttrs(attrs), h.provider)
}

// WithGroup nests later attributes, including the injected ones.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return NewContextHandler(h.inner.WithGroup(name), h.provider)
}
