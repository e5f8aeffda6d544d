package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/services"
)

const maxBodyBytes = 1 << 20

// UserFlows is the identity surface served under /api/auth.
type UserFlows interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	Me(ctx context.Context, claims *auth.Claims) (*models.User, error)
	CreateUser(ctx context.Context, in services.CreateUserInput) (*models.User, error)
}

// OrderAnalytics is the metrics surface served under /api/analytics.
type OrderAnalytics interface {
	OrderSummary(ctx context.Context, userID int64, from, to time.Time) (*models.OrderSummary, error)
}

// Pinger reports storage health. A nil Pinger is always healthy.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type handlers struct {
	users     UserFlows
	analytics OrderAnalytics
	db        Pinger
	logger    logging.Logger
	metrics   *Metrics
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	res, err := h.users.Register(r.Context(), in)
	h.metrics.identityEvent("register", err)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	res, err := h.users.Login(r.Context(), in)
	h.metrics.identityEvent("login", err)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	user, err := h.users.Me(r.Context(), claims)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var in services.CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	user, err := h.users.CreateUser(r.Context(), in)
	h.metrics.identityEvent("admin_create_user", err)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *handlers) orderSummary(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	from, err := parseTimeParam(r, "from")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	summary, err := h.analytics.OrderSummary(r.Context(), claims.ID, from, to)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", common.ErrValidation, msgInvalidBody)
	}
	return nil
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be an RFC3339 timestamp", common.ErrValidation, name)
	}
	return t, nil
}
