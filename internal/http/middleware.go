package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"
)

// Middleware defines the standard signature for an HTTP middleware.
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middlewares into a single handler.
// The middlewares are applied in the order they are passed.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// contextKey is a custom type to avoid key collisions in context.
type contextKey string

const (
	dryRunKey contextKey = "dryRun"
	actorKey  contextKey = "actor"
)

// actorHeader names the caller. It is set by the gateway in front of the service.
const actorHeader = "X-User-ID"

// paramsMiddleware handles common query parameters like 'verbose' and 'dry_run'.
func paramsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Info("incoming request", "method", r.Method, "url", r.URL.String())
		// Handle 'verbose' for request-scoped verbose logging.
		if r.URL.Query().Get("verbose") == "true" {
			originalLevel := log.GetLevel()
			log.SetLevel(log.DebugLevel)
			defer log.SetLevel(originalLevel)
		}

		// Handle 'dry_run' and add it to the request context.
		isDryRun := r.URL.Query().Get("dry_run") == "true"
		ctx := context.WithValue(r.Context(), dryRunKey, isDryRun)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorMiddleware rejects requests without a caller identity.
func actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(actorHeader))
		if actor == "" {
			respondError(w, invalidRequest("missing %s header", actorHeader), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// recoveryMiddleware turns a panicking handler into a 500 response.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered", "error", rec, "method", r.Method, "path", r.URL.Path, "stack", string(debug.Stack()))
				respondError(w, errInternal, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// slackVerificationMiddleware checks the Slack request signature when a
// signing secret is configured.
func (s *Server) slackVerificationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.Cfg.Slack.SigningSecret
		if secret == "" {
			log.Warn("Slack signing secret not configured, skipping verification")
			next.ServeHTTP(w, r)
			return
		}

		verifier, err := slack.NewSecretsVerifier(r.Header, secret)
		if err != nil {
			log.Warn("Rejected Slack request", "error", err)
			http.Error(w, "Invalid Slack request", http.StatusUnauthorized)
			return
		}
		body, err := io.ReadAll(io.TeeReader(r.Body, &verifier))
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		if err := verifier.Ensure(); err != nil {
			log.Warn("Slack signature mismatch", "error", err)
			http.Error(w, "Invalid Slack signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// isDryRunFromContext is a helper to safely retrieve the dry_run flag from the request context.
func isDryRunFromContext(r *http.Request) bool {
	dryRun, ok := r.Context().Value(dryRunKey).(bool)
	return ok && dryRun
}

func actorFromContext(r *http.Request) string {
	actor, _ := r.Context().Value(actorKey).(string)
	return actor
}
