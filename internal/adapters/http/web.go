package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusevents/internal/adapters/http/middleware"
	"campusevents/internal/adapters/http/perf"
	"campusevents/internal/adapters/storage/session"
	"campusevents/internal/application/dashboard"
	"campusevents/internal/application/orchestrators"
	"campusevents/internal/domain/access"
	sessionDomain "campusevents/internal/domain/session"
)

//go:embed templates/*.html static/*
var assets embed.FS

// CampusAPI is everything the handlers ask of the campus API.
type CampusAPI interface {
	dashboard.API
	orchestrators.LoginAPI
	orchestrators.LogoutAPI
}

// Deps holds everything NewMux wires into the handlers.
type Deps struct {
	API            CampusAPI
	Sessions       session.Store
	Cookie         *middleware.SIDCookie
	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string
	Collector      *perf.Collector
	Gatherer       prometheus.Gatherer
	// Dashboards is created from API when nil.
	Dashboards *dashboard.Registry
}

// Global campus API client (set by NewMux)
var api CampusAPI

// Global session store instance (set by NewMux)
var sessions session.Store

// Global per-browser dashboard controllers (set by NewMux)
var dashboards *dashboard.Registry

// Global signed sid cookie codec (set by NewMux)
var sidCookie *middleware.SIDCookie

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// NewMux wires HTTP handlers for the app.
// PRE: d.API, d.Sessions and d.Cookie are set; len(d.CSRFKey) == 32
func NewMux(d Deps) http.Handler {
	api = d.API
	sessions = d.Sessions
	sidCookie = d.Cookie
	perfCollector = d.Collector
	dashboards = d.Dashboards
	if dashboards == nil {
		dashboards = dashboard.NewRegistry(d.API)
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	static, _ := fs.Sub(assets, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Route -> Mux
	return middleware.Chain(mux,
		middleware.Route,
		middleware.SecurityHeaders,
		middleware.CSRF(d.CSRFKey, d.SecureCookies, d.TrustedOrigins),
		middleware.Auth(d.Cookie, sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(d.Collector),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleLoginPage)
	mux.HandleFunc("POST /login", handleLogin)
	mux.HandleFunc("POST /logout", handleLogout)
	mux.HandleFunc("GET /healthz", handleHealthz)

	admin := guarded(sessionDomain.RoleAdmin)
	mux.Handle("GET "+access.AdminDashboardPath, admin(handleAdminDashboard))
	mux.Handle("POST "+access.AdminDashboardPath+"/events", admin(handleCreateEvent))
	mux.Handle("GET "+access.AdminDashboardPath+"/perf", admin(handlePerf))

	student := guarded(sessionDomain.RoleStudent)
	mux.Handle("GET "+access.StudentDashboardPath, student(handleStudentDashboard))
	mux.Handle("POST "+access.StudentDashboardPath+"/registrations", student(handleRegister))
	mux.Handle("POST "+access.StudentDashboardPath+"/feedback", student(handleFeedback))
}

// guarded wraps handlers in the route guard for role. A rejected browser also
// loses its dashboard controllers.
func guarded(role string) func(http.HandlerFunc) http.Handler {
	guard := middleware.Guard(sessions, role, dashboards.Drop)
	return func(h http.HandlerFunc) http.Handler {
		return guard(h)
	}
}

// handleHealthz handles GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := sessions.Healthy(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
