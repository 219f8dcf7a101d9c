package ui

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spendlens/internal"
	"spendlens/internal/container"
)

// App is the operational sidecar router. It serves health probes and
// debug views on a separate port so the dashboard API can be fronted by
// an auth proxy without hiding /healthz from the platform.
type App struct {
	router *chi.Mux
	deps   *container.Container
	logger *internal.Logger
}

// NewApp creates the ops router over an initialized container
func NewApp(deps *container.Container) *App {
	app := &App{
		router: chi.NewRouter(),
		deps:   deps,
		logger: internal.NewDefaultLogger().Component("Ops"),
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app
}

// Router exposes the chi mux for tests
func (a *App) Router() *chi.Mux {
	return a.router
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the operational routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealthz)
	a.router.Get("/readyz", a.handleReadyz)
	a.router.Get("/debug/catalog", a.handleDebugCatalog)
}

// Start starts the ops server on the given address
func (a *App) Start(addr string) error {
	a.logger.Info("starting ops endpoints on http://%s", addr)
	return http.ListenAndServe(addr, a.router)
}

// handleHealthz reports liveness. The process answering is the check.
func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// handleReadyz reports readiness: the registry must be discovered and,
// when persistence is configured, the database must answer a ping.
func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	if a.deps.Registry == nil {
		checks["registry"] = "not initialized"
		ready = false
	} else {
		checks["registry"] = "ok"
	}

	if a.deps.DB != nil {
		if err := a.deps.DB.PingContext(r.Context()); err != nil {
			checks["database"] = err.Error()
			ready = false
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "disabled"
	}

	if a.deps.Runner != nil && a.deps.Runner.Running() {
		checks["pipeline"] = "run in progress"
	} else {
		checks["pipeline"] = "idle"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	a.writeJSON(w, status, map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}

// handleDebugCatalog dumps the registry catalog for support diagnostics
func (a *App) handleDebugCatalog(w http.ResponseWriter, r *http.Request) {
	if a.deps.Registry == nil {
		a.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "registry not initialized",
		})
		return
	}
	a.writeJSON(w, http.StatusOK, a.deps.Registry.Catalog())
}

func (a *App) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Error("failed to encode response: %v", err)
	}
}
