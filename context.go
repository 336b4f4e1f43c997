package strut

import (
	"context"
	"net/http"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
func SetValue[T any](r *http.Request, val T) *http.Request {
	ctx := context.WithValue(r.Context(), contextKey[T]{}, val)
	return r.WithContext(ctx)
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

// withRequest binds the dispatching Request into ctx for the accessors
// below.
func withRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, contextKey[*Request]{}, req)
}

// RequestFrom returns the dispatching Request for the current handler
// invocation, if any.
func RequestFrom(ctx context.Context) (*Request, bool) {
	return GetValue[*Request](ctx)
}

// RequestIDFrom returns the current request ID, or "" outside a dispatch.
func RequestIDFrom(ctx context.Context) string {
	if r, ok := RequestFrom(ctx); ok {
		return r.ID()
	}
	return ""
}
