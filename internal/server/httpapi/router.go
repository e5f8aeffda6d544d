package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/gorilla/mux"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Users     UserFlows
	Analytics OrderAnalytics
	Tokens    TokenVerifier
	DB        Pinger
	Logger    logging.Logger
	Metrics   *Metrics
}

// NewRouter mounts the auth and analytics route groups, health and metrics.
func NewRouter(d Deps) *mux.Router {
	logger := d.Logger.With("module", "httpapi")
	metrics := d.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	h := &handlers{users: d.Users, analytics: d.Analytics, db: d.DB, logger: logger, metrics: metrics}
	authn := NewAuthenticator(d.Tokens, logger, metrics)

	r := mux.NewRouter()
	r.Use(requestID, accessLog(logger, metrics), recoverer(logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllow)
	})

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.HandleFunc("/register", h.register).Methods(http.MethodPost)
	authAPI.HandleFunc("/login", h.login).Methods(http.MethodPost)
	authAPI.Handle("/me", authn.Authenticate(http.HandlerFunc(h.me))).Methods(http.MethodGet)
	authAPI.Handle("/admin/users",
		authn.Authenticate(authn.RequireRole(common.RoleAdmin)(http.HandlerFunc(h.createUser))),
	).Methods(http.MethodPost)

	analyticsAPI := r.PathPrefix("/api/analytics").Subrouter()
	analyticsAPI.Use(authn.Authenticate)
	analyticsAPI.HandleFunc("/orders/summary", h.orderSummary).Methods(http.MethodGet)

	return r
}
