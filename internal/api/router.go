package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/marcusvb/clipflow/internal/api/middleware"
	"github.com/marcusvb/clipflow/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler      http.HandlerFunc
	RenderHandler      http.HandlerFunc
	StatusHandler      http.HandlerFunc
	ListRendersHandler http.HandlerFunc
	IngestHandler      http.HandlerFunc
	ProbeHandler       http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/renders", orNotImplemented(deps.RenderHandler))
		r.Get("/api/v1/renders", orNotImplemented(deps.ListRendersHandler))
		r.Get("/api/v1/renders/{jobID}", orNotImplemented(deps.StatusHandler))

		r.Post("/api/v1/assets/ingest", orNotImplemented(deps.IngestHandler))
		r.Post("/api/v1/assets/probe", orNotImplemented(deps.ProbeHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
