package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fynch/toast-export-api/internal/api"
	apiMiddleware "github.com/fynch/toast-export-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	exportHandler := api.NewExportHandler(app.dispatcher, app.store, app.logger)
	healthHandler := api.NewHealthHandler(app.store)

	r.Route("/api", func(r chi.Router) {
		r.Post("/exports", exportHandler.CreateExport)
		r.Post("/tips", exportHandler.CreateTipsExport)
		r.Get("/exports/{id}", exportHandler.GetExport)
		r.Get("/exports/{id}/logs", exportHandler.GetExportLogs)
	})

	r.Get("/health", healthHandler.Health)

	return r
}
