package http

import "context"

type contextKey struct{}

// requestScope carries per-request identifiers attached by the middleware chain.
type requestScope struct {
	RequestID   string
	OperationID string
}

func withRequestScope(ctx context.Context, scope requestScope) context.Context {
	return context.WithValue(ctx, contextKey{}, scope)
}

func requestScopeFrom(ctx context.Context) requestScope {
	if ctx == nil {
		return requestScope{}
	}
	scope, _ := ctx.Value(contextKey{}).(requestScope)
	return scope
}

// RequestIDFromContext returns the request id assigned to the current roster request.
func RequestIDFromContext(ctx context.Context) string {
	return requestScopeFrom(ctx).RequestID
}

// OperationIDFromContext returns the roster operation serving the request, such as "create-character".
func OperationIDFromContext(ctx context.Context) string {
	return requestScopeFrom(ctx).OperationID
}
