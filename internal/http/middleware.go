package http

import (
	"fmt"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tavern/app/internal/metrics"
)

const (
	requestIDHeader    = "X-Request-ID"
	unknownOperation   = "unknown"
	rateLimitMessage   = "Too many roster requests. Please wait a moment and try again."
	panicMessage       = "The roster hit an unexpected error."
	pageNotFoundText   = "There is no roster page at this address."
	sentryFlushTimeout = 2 * time.Second
)

// scopeMiddleware assigns the request id and resolves the roster operation
// before any other middleware runs. A well-formed incoming X-Request-ID is kept.
func (s *Server) scopeMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := strings.TrimSpace(ctx.Header(requestIDHeader))
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}

		scope := requestScope{RequestID: reqID, OperationID: operationID(ctx)}
		ctx = huma.WithContext(ctx, withRequestScope(ctx.Context(), scope))
		ctx.SetHeader(requestIDHeader, reqID)

		next(ctx)
	}
}

// sentryMiddleware clones the hub per request and tags it with the roster operation.
func (s *Server) sentryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		scope := requestScopeFrom(ctx.Context())
		hub := s.sentry.Clone()
		hub.Scope().SetTags(map[string]string{
			"roster.operation": scope.OperationID,
			"request_id":       scope.RequestID,
		})
		if op := ctx.Operation(); op != nil {
			hub.Scope().SetTag("http.route", op.Method+" "+op.Path)
		}

		ctx = huma.WithContext(ctx, sentry.SetHubOnContext(ctx.Context(), hub))
		defer hub.Flush(sentryFlushTimeout)

		next(ctx)
	}
}

// recoveryMiddleware turns a panic in a roster handler into the API's JSON 500.
func (s *Server) recoveryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}

			goCtx := ctx.Context()
			scope := requestScopeFrom(goCtx)
			s.recordError(goCtx, err, "roster handler panicked", logrus.Fields{"operation": scope.OperationID})
			metrics.ObserveRequest(scope.OperationID, stdhttp.StatusInternalServerError, start)

			if writeErr := huma.WriteErr(s.api, ctx, stdhttp.StatusInternalServerError, panicMessage); writeErr != nil && s.logger != nil {
				s.logger.WithError(writeErr).Error("writing panic response failed")
			}
		}()

		next(ctx)
	}
}

// observeMiddleware logs every roster request and records its count and
// latency per operation and status.
func (s *Server) observeMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		scope := requestScopeFrom(ctx.Context())
		metrics.ObserveRequest(scope.OperationID, status, start)

		if s.logger == nil {
			return
		}

		entry := s.logger.WithFields(logrus.Fields{
			"operation":   scope.OperationID,
			"request_id":  scope.RequestID,
			"method":      ctx.Method(),
			"path":        ctx.URL().Path,
			"remote_addr": ctx.RemoteAddr(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		})

		switch {
		case status >= 500:
			entry.Error("roster request failed")
		case status >= 400:
			entry.Warn("roster request rejected")
		default:
			entry.Info("roster request completed")
		}
	}
}

// rateLimitMiddleware rejects clients that exhausted their bucket with a JSON 429.
func (s *Server) rateLimitMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.rateLimiter == nil {
			next(ctx)
			return
		}

		req, _ := humago.Unwrap(ctx)
		ip := clientIPFromRequest(req)
		if s.rateLimiter.Allow(ip) {
			next(ctx)
			return
		}

		scope := requestScopeFrom(ctx.Context())
		metrics.HTTPRateLimitedTotal.WithLabelValues(scope.OperationID).Inc()

		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"ip":         ip,
				"operation":  scope.OperationID,
				"request_id": scope.RequestID,
			}).Warn("roster request rate limited")
		}

		ctx.SetHeader("Retry-After", "1")
		if err := huma.WriteErr(s.api, ctx, stdhttp.StatusTooManyRequests, rateLimitMessage); err != nil && s.logger != nil {
			s.logger.WithError(err).Error("writing rate limit response failed")
		}
	}
}

// rosterPageGuard answers 404 for paths that only reached the roster page
// because ServeMux treats "GET /" as a catch-all.
func (s *Server) rosterPageGuard() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op == nil || op.OperationID != opRosterPage || ctx.URL().Path == "/" {
			next(ctx)
			return
		}

		resp, _ := s.renderErrorResponse(ctx.Context(), stdhttp.StatusNotFound, pageNotFoundText)
		ctx.SetHeader("Content-Type", resp.ContentType)
		ctx.SetStatus(resp.Status)
		if _, err := ctx.BodyWriter().Write(resp.Body); err != nil && s.logger != nil {
			s.logger.WithError(err).Error("writing not found page failed")
		}
	}
}

func operationID(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil && op.OperationID != "" {
		return op.OperationID
	}
	return unknownOperation
}

func clientIPFromRequest(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		if candidate := strings.TrimSpace(strings.Split(forwarded, ",")[0]); candidate != "" {
			return candidate
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
