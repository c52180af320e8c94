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
	"github.com/rotisserie/eris"
)

const (
	rateLimitMessage = "Too many wiki requests from your address. Please wait a moment and try again."
	panicMessage     = "Something went wrong while loading this wiki page."
	userHeader       = "X-Wiki-User"
	requestIDHeader  = "X-Request-ID"
	sentryFlushAfter = 2 * time.Second
)

type middleware = func(huma.Context, func(huma.Context))

// sentryMiddleware gives every request its own hub so scope data does not leak
// between requests.
func (s *Server) sentryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		hub.Scope().SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			hub.Scope().SetTag("http.route", op.Path)
		}
		defer hub.Flush(sentryFlushAfter)

		next(huma.WithContext(ctx, sentry.SetHubOnContext(ctx.Context(), hub)))
	}
}

func (s *Server) recoveryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			s.recordError(ctx.Context(), eris.Wrap(err, "handler panicked"), "panic recovered", nil)

			if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
				hub.RecoverWithContext(ctx.Context(), rec)
				hub.Flush(sentryFlushAfter)
			}

			writeHTML(ctx, s.renderErrorResponse(ctx.Context(), stdhttp.StatusInternalServerError, panicMessage))
		}()

		next(ctx)
	}
}

// identifyMiddleware records the request id, acting user and client address
// on the context. A well-formed incoming request id is kept.
func (s *Server) identifyMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		who := caller{
			RequestID: strings.TrimSpace(ctx.Header(requestIDHeader)),
			User:      strings.TrimSpace(ctx.Header(userHeader)),
		}
		if _, err := uuid.Parse(who.RequestID); err != nil {
			who.RequestID = uuid.NewString()
		}
		if req, _ := humago.Unwrap(ctx); req != nil {
			who.ClientIP = clientIP(req)
		}

		ctx.SetHeader(requestIDHeader, who.RequestID)

		if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
			hub.Scope().SetTag("request_id", who.RequestID)
			hub.Scope().SetUser(sentry.User{Username: who.User, IPAddress: who.ClientIP})
		}

		next(huma.WithContext(ctx, withCaller(ctx.Context(), who)))
	}
}

// rateLimitMiddleware spends one token of the client's bucket per request.
func (s *Server) rateLimitMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		who := callerFromContext(ctx.Context())
		if s.rateLimiter == nil || who.ClientIP == "" || s.rateLimiter.Allow(who.ClientIP) {
			next(ctx)
			return
		}

		if s.logger != nil {
			s.logger.WithError(eris.New("rate limit exceeded")).
				WithFields(who.fields()).
				WithField("path", ctx.URL().Path).
				Warn("request rate limited")
		}

		ctx.SetHeader("Retry-After", "1")
		writeHTML(ctx, s.renderErrorResponse(ctx.Context(), stdhttp.StatusTooManyRequests, rateLimitMessage))
	}
}

func (s *Server) accessLogMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		entry := s.logger.WithFields(callerFromContext(ctx.Context()).fields()).WithFields(map[string]interface{}{
			"method":      ctx.Method(),
			"path":        ctx.URL().Path,
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		})
		if op := ctx.Operation(); op != nil {
			entry = entry.WithField("route", op.Path)
		}

		if status >= stdhttp.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request completed")
	}
}

// writeHTML sends a rendered page from outside a huma handler.
func writeHTML(ctx huma.Context, resp *htmlResponse) {
	ctx.SetHeader("Content-Type", resp.ContentType)
	ctx.SetStatus(resp.Status)
	_, _ = ctx.BodyWriter().Write(resp.Body)
}

// clientIP prefers proxy headers over the socket address.
func clientIP(req *stdhttp.Request) string {
	if first, _, _ := strings.Cut(req.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
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
