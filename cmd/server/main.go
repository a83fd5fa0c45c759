package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"campusevents/internal/adapters/campusapi"
	web "campusevents/internal/adapters/http"
	"campusevents/internal/adapters/http/middleware"
	"campusevents/internal/adapters/http/perf"
	"campusevents/internal/adapters/storage"
	"campusevents/internal/adapters/storage/session"
	"campusevents/internal/application/dashboard"
	"campusevents/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	setupLogging(cfg)

	collector := perf.NewCollector(perf.DefaultRingSize)

	store, closeStore, err := openSessionStore(context.Background(), cfg, collector)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer closeStore.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := campusapi.New(cfg.APIBaseURL, cfg.APITimeout,
		campusapi.WithRegisterer(reg),
		campusapi.WithCollector(collector),
	)
	dashboards := dashboard.NewRegistry(api)

	web.RateLimitPerSecond = cfg.RateLimitPerSecond
	mux := web.NewMux(web.Deps{
		API:           api,
		Sessions:      store,
		Cookie:        middleware.NewSIDCookie(cfg.DeriveKey("cookie"), cfg.SecureCookies, cfg.SessionTTL),
		CSRFKey:       cfg.DeriveKey("csrf"),
		SecureCookies: cfg.SecureCookies,
		Collector:     collector,
		Gatherer:      reg,
		Dashboards:    dashboards,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepDashboards(ctx, dashboards, cfg.SessionTTL)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.APITimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.Addr,
			"env", cfg.Env,
			"api", cfg.APIBaseURL,
			"session_backend", cfg.SessionBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err)
	}
}

// setupLogging installs a JSON handler in production and a text handler otherwise.
func setupLogging(cfg config.App) {
	level := slog.LevelInfo
	if os.Getenv("CAMPUS_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openSessionStore builds the configured session store backend.
// SQL backends are wrapped in TimedDB so their queries show up in the perf dashboard.
func openSessionStore(ctx context.Context, cfg config.App, collector *perf.Collector) (session.Store, io.Closer, error) {
	switch cfg.SessionBackend {
	case config.BackendMemory:
		slog.Warn("session_store_memory", "detail", "sessions won't survive restart")
		return session.NewMemoryStore(), closerFunc(func() error { return nil }), nil

	case config.BackendRedis:
		store := session.NewRedisStore(cfg.RedisAddr, cfg.SessionTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := store.Healthy(pingCtx); err != nil {
			slog.Warn("session_store_unreachable", "backend", "redis", "addr", cfg.RedisAddr, "error", err)
		}
		return store, store, nil

	default:
		dialect, dsn := storage.DialectSQLite, cfg.DBPath
		if cfg.SessionBackend == config.BackendPostgres {
			dialect, dsn = storage.DialectPostgres, cfg.DatabaseURL
		}
		db, err := storage.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.InitDB(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		timed := storage.NewTimedDB(db, collector)
		return session.NewSQLStore(timed, dialect, cfg.SessionTTL), timed, nil
	}
}

// sweepDashboards drops dashboard controllers of browsers idle for longer than the session lifetime.
func sweepDashboards(ctx context.Context, dashboards *dashboard.Registry, maxIdle time.Duration) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := dashboards.Sweep(maxIdle); n > 0 {
				slog.Info("dashboards_swept", "dropped", n, "live", dashboards.Len())
			}
		}
	}
}
