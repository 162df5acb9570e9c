package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/promptdeck/ingest-api/internal/api"
	apiMiddleware "github.com/promptdeck/ingest-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	importHandler := api.NewImportHandler(app.importService, app.logger)
	rowHandler := api.NewRowHandler(app.importService, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Import endpoints
		r.Post("/imports", importHandler.CreateImport)
		r.Get("/imports", importHandler.ListImports)
		r.Get("/imports/{id}", importHandler.GetImport)
		r.Get("/imports/{id}/rows", importHandler.ListImportRows)

		// Row endpoints
		r.Get("/rows", rowHandler.ListRows)
		r.Get("/rows/{id}", rowHandler.GetRow)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
