package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext carries per-request correlation identifiers. The HTTP
// trace middleware populates it from inbound headers, generating fresh
// IDs when the caller sent none.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// WithTrace attaches trace identifiers to the context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns the trace identifiers, nil outside a traced request.
func GetTrace(ctx context.Context) *TraceContext {
	t, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return t
}

// GetTraceID returns the trace ID, generating a throwaway one when the
// context carries no trace. Callers that log outside the request path
// still get a correlatable value.
func GetTraceID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.TraceID
	}
	return uuid.New().String()
}

// GetRequestID returns the request ID or "" outside a traced request.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}
