package observability

import (
	"context"
	"log/slog"

	"github.com/geocoder89/bookstore/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

// ContextHandler decorates records with request-scoped values found on the
// context: the active span and the authenticated account, if any.
type ContextHandler struct {
	next slog.Handler
}

func NewTraceHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := trace.SpanFromContext(ctx).SpanContext()

	if sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if id, ok := actorctx.UserIDFrom(ctx); ok {
		r.AddAttrs(slog.Int64("user_id", id))
	}

	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
