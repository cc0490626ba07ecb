package logger

import (
	"context"
	log "log/slog"
)

// TraceIDKey 链路追踪 ID 在 Context 和日志属性里的键名
const TraceIDKey = "trace_id"

// WithTraceID 把追踪 ID 写入 ctx，后续经由 ContextHandler 的日志自动携带
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// TraceIDFrom 取出 ctx 中的追踪 ID，没有则为空串
func TraceIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// ContextHandler 在每条日志记录上附加 ctx 携带的追踪 ID
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if id := TraceIDFrom(ctx); id != "" {
		r.AddAttrs(log.String(TraceIDKey, id))
	}
	return h.Handler.Handle(ctx, r)
}
