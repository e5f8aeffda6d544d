package httpapi

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-ID"

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticator gates requests on a valid bearer token.
type Authenticator struct {
	tokens  TokenVerifier
	logger  logging.Logger
	metrics *Metrics
}

func NewAuthenticator(tokens TokenVerifier, logger logging.Logger, metrics *Metrics) *Authenticator {
	return &Authenticator{tokens: tokens, logger: logger.With("module", "httpapi.auth"), metrics: metrics}
}

// Authenticate rejects requests without a verifiable bearer token and
// attaches the claims to the request context otherwise. Expired and forged
// tokens get the same response.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if header == "" {
			a.metrics.authFailure("missing_header")
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		if !strings.HasPrefix(header, common.BearerPrefix) {
			a.metrics.authFailure("malformed_header")
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		claims, err := a.tokens.Verify(strings.TrimPrefix(header, common.BearerPrefix))
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, common.ErrTokenExpired) {
				reason = "expired_token"
			}
			a.metrics.authFailure(reason)
			a.logger.Debug(r.Context(), "token rejected", "reason", reason, "request_id", RequestIDFromContext(r.Context()))
			writeError(w, http.StatusUnauthorized, msgInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// RequireRole must run after Authenticate. It trusts the role carried in the
// token and does not consult the store.
func (a *Authenticator) RequireRole(role string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				a.metrics.authFailure("missing_claims")
				writeError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			if claims.Role != role {
				a.metrics.authFailure("forbidden")
				writeError(w, http.StatusForbidden, msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestID propagates X-Request-ID or generates a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// accessLog records one log line and the request metrics per request.
func accessLog(logger logging.Logger, metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if cr := mux.CurrentRoute(r); cr != nil {
				if tpl, err := cr.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			d := time.Since(start)
			metrics.observeRequest(r.Method, route, rw.status, d)
			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration", d,
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

func recoverer(logger logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error(r.Context(), "panic", "panic", p, "stack", string(debug.Stack()))
					writeError(w, http.StatusInternalServerError, msgInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
