package api

import (
	"logistics-route-service/internal/api/handlers"
	"logistics-route-service/internal/ports"
	"net/http"

	"go.uber.org/zap"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Routes     handlers.RouteService
	Reconciler handlers.ReconcileRunner
	Audit      ports.ReconciliationLog
	// DB is pinged by /health; nil when no database is configured.
	DB  handlers.Pinger
	Log *zap.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	logger := deps.Log
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	routes := &handlers.RouteHandler{Service: deps.Routes}
	recon := &handlers.ReconciliationHandler{Runner: deps.Reconciler, Audit: deps.Audit}
	health := &handlers.HealthHandler{DB: deps.DB}

	mux.HandleFunc("GET /health", health.Health)

	mux.HandleFunc("GET /routes", routes.List)
	mux.HandleFunc("POST /routes", routes.Create)
	mux.HandleFunc("POST /routes/deviation", routes.Deviation)
	mux.HandleFunc("GET /routes/{id}", routes.Get)
	mux.HandleFunc("PATCH /routes/{id}", routes.Update)
	mux.HandleFunc("DELETE /routes/{id}", routes.Delete)
	mux.HandleFunc("POST /routes/{id}/assign", routes.Assign)
	mux.HandleFunc("POST /routes/{id}/preview", routes.Preview)
	mux.HandleFunc("PATCH /routes/{id}/vehicle", routes.SetVehicle)
	mux.HandleFunc("PATCH /routes/{id}/driver", routes.SetDriver)
	mux.HandleFunc("POST /routes/{id}/distance", routes.SetDistance)

	mux.HandleFunc("POST /reconciliations", recon.Run)
	mux.HandleFunc("GET /reconciliations", recon.Recent)

	return requestIDMiddleware(loggingMiddleware(logger, recoverMiddleware(logger, mux)))
}
