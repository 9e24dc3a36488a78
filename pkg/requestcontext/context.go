// Package requestcontext carries request-scoped values (request id, client IP,
// request time) through context.Context so services can log and timestamp
// without importing net/http.
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	requestIDKey key = iota
	clientIPKey
	requestTimeKey
)

func stringValue(ctx context.Context, k key) string {
	v, _ := ctx.Value(k).(string)
	return v
}

func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func ClientIP(ctx context.Context) string {
	return stringValue(ctx, clientIPKey)
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// Now returns the time captured when the request arrived, or the wall clock
// outside a request (CLI, background work).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}

// LogAttrs returns the request_id and client_ip slog pairs that are set on ctx.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if ip := ClientIP(ctx); ip != "" {
		attrs = append(attrs, "client_ip", ip)
	}
	return attrs
}
