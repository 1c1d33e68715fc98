// Package httpapi exposes the identity service over HTTP with JSON bodies.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/rs/zerolog"

	"idfort.org/internal/audit"
	"idfort.org/internal/iam"
	"idfort.org/internal/obs"
	"idfort.org/internal/session"
)

// ReadyProbe verifies the service can reach its record store.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	accounts *iam.Service
	sessions *session.Manager
	audit    *audit.Logger
	log      zerolog.Logger

	rateBurst  int
	ratePerSec int
}

// Option configures the API.
type Option func(*API)

// WithRateLimit overrides the per-IP token bucket parameters.
func WithRateLimit(burst, perSec int) Option {
	return func(a *API) {
		if burst > 0 {
			a.rateBurst = burst
		}
		if perSec > 0 {
			a.ratePerSec = perSec
		}
	}
}

// New wires the HTTP routes.
func New(rp ReadyProbe, version string, accounts *iam.Service, sessions *session.Manager, auditLog *audit.Logger, log zerolog.Logger, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		accounts:   accounts,
		sessions:   sessions,
		audit:      auditLog,
		log:        log,
		rateBurst:  20,
		ratePerSec: 10,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.healthz)
	a.mux.HandleFunc("/readyz", a.ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/login", a.handleLogin)
	a.mux.HandleFunc("/api/logout", a.handleLogout)
	a.mux.HandleFunc("/api/me", a.handleMe)
	a.mux.HandleFunc("/api/register", a.handleRegister)

	a.mux.HandleFunc("/api/admin/users", a.handleUsersCollection)
	a.mux.HandleFunc("/api/admin/users/", a.handleUserResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withSession(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = a.logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
