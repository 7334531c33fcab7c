package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/JasonKing5/ifs/internal/auth"
	"github.com/JasonKing5/ifs/internal/catalog"
	"github.com/JasonKing5/ifs/internal/obs"
	"github.com/JasonKing5/ifs/internal/probe"
)

const serviceName = "ifs-api"

// Options wires the HTTP layer to its services.
type Options struct {
	Version        string
	Auth           *auth.Service
	Catalog        *catalog.Service
	Probe          *probe.Probe
	SecureCookies  bool
	AllowedOrigins []string
	RateBurst      int
	RatePerSecond  int
	MaxBodyBytes   int64
}

// API is the HTTP layer.
type API struct {
	auth    *auth.Service
	catalog *catalog.Service
	probe   *probe.Probe
	version string

	secureCookies  bool
	allowedOrigins []string
	rateBurst      int
	ratePerSec     int
	maxBodyBytes   int64

	once    sync.Once
	handler http.Handler
}

func New(opts Options) *API {
	a := &API{
		auth:           opts.Auth,
		catalog:        opts.Catalog,
		probe:          opts.Probe,
		version:        opts.Version,
		secureCookies:  opts.SecureCookies,
		allowedOrigins: opts.AllowedOrigins,
		rateBurst:      opts.RateBurst,
		ratePerSec:     opts.RatePerSecond,
		maxBodyBytes:   opts.MaxBodyBytes,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 10
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 5
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}
	if a.probe == nil {
		a.probe = probe.New()
	}
	return a
}

// Handler builds the router on first use.
func (a *API) Handler() http.Handler {
	a.once.Do(func() {
		a.handler = obs.Instrument(CORS(a.allowedOrigins)(a.routes()))
	})
	return a.handler
}

func (a *API) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(RequestID, Recoverer, LoggingJSON, SecurityHeaders, MaxBodyBytes(a.maxBodyBytes))

	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	limiter := newIPLimiter(a.rateBurst, a.ratePerSec)
	ar := r.PathPrefix("/auth").Subrouter()
	ar.Use(limiter.Middleware)
	ar.HandleFunc("/register", a.handleRegister).Methods(http.MethodPost)
	ar.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	ar.HandleFunc("/refresh", a.handleRefresh).Methods(http.MethodPost)
	ar.HandleFunc("/logout", a.handleLogout).Methods(http.MethodPost)
	ar.HandleFunc("/send-email", a.handleSendEmail).Methods(http.MethodPost)
	ar.HandleFunc("/reset-password", a.handleResetPassword).Methods(http.MethodPost)
	ar.Handle("/me", a.withAuth(http.HandlerFunc(a.handleMe))).Methods(http.MethodGet)

	writers := []string{auth.RoleUser, auth.RoleAdmin}
	r.HandleFunc("/poetry", a.handleListPoems).Methods(http.MethodGet)
	r.Handle("/poetry", a.guard(a.handleCreatePoem, writers, auth.PermCreatePoetry)).Methods(http.MethodPost)
	r.HandleFunc("/poetry/", a.handleMissingID).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	r.HandleFunc("/poetry/{id}", a.handleGetPoem).Methods(http.MethodGet)
	r.Handle("/poetry/{id}", a.guard(a.handleUpdatePoem, writers, auth.PermUpdatePoetry)).Methods(http.MethodPut)
	r.Handle("/poetry/{id}", a.guard(a.handleDeletePoem, writers, auth.PermDeletePoetry)).Methods(http.MethodDelete)

	r.HandleFunc("/author", a.handleListAuthors).Methods(http.MethodGet)
	r.Handle("/author", a.guard(a.handleCreateAuthor, []string{auth.RoleAdmin}, auth.PermCreateAuthor)).Methods(http.MethodPost)

	return r
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.probe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
