package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	s, err := auth.NewTokenService("mw-secret", auth.TokenTTL)
	require.NoError(t, err)
	return s
}

// echoClaims writes the authenticated role so tests can see what reached the handler.
var echoClaims = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(c.Role))
})

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	tokens := newTokens(t)
	authn := NewAuthenticator(tokens, logging.Nop(), NewMetrics())
	h := authn.Authenticate(echoClaims)

	valid, err := tokens.Issue(1, "a@b.com", common.RoleUser)
	require.NoError(t, err)

	past := time.Now().Add(-8 * 24 * time.Hour)
	expired, err := newTokens(t).WithClock(func() time.Time { return past }).Issue(1, "a@b.com", common.RoleUser)
	require.NoError(t, err)

	foreign, err := auth.NewTokenService("other-secret", auth.TokenTTL)
	require.NoError(t, err)
	forged, err := foreign.Issue(1, "a@b.com", common.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"no header", "", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"wrong scheme", "Token " + valid, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"lowercase scheme", "bearer " + valid, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"empty token", "Bearer ", http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, `{"error":"Invalid token"}`},
		{"forged", "Bearer " + forged, http.StatusUnauthorized, `{"error":"Invalid token"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.header)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}

	t.Run("valid", func(t *testing.T) {
		rec := serve(h, "Bearer "+valid)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, common.RoleUser, rec.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens(t)
	authn := NewAuthenticator(tokens, logging.Nop(), NewMetrics())
	h := authn.Authenticate(authn.RequireRole(common.RoleAdmin)(echoClaims))

	userTok, err := tokens.Issue(1, "u@x.io", common.RoleUser)
	require.NoError(t, err)
	adminTok, err := tokens.Issue(2, "a@x.io", common.RoleAdmin)
	require.NoError(t, err)

	rec := serve(h, "Bearer "+userTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden"}`, rec.Body.String())

	rec = serve(h, "Bearer "+adminTok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, common.RoleAdmin, rec.Body.String())
}

func TestRequireRole_WithoutAuthenticate(t *testing.T) {
	authn := NewAuthenticator(newTokens(t), logging.Nop(), NewMetrics())
	rec := serve(authn.RequireRole(common.RoleAdmin)(echoClaims), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRecoverer(t *testing.T) {
	h := recoverer(logging.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := serve(h, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
