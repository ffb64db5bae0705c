package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/prospector/internal/api/middleware"
	"github.com/kiranshivaraju/prospector/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	// AllowedOrigins feeds CORS. Empty disables cross-origin access.
	AllowedOrigins []string

	HealthHandler http.HandlerFunc

	ValidateSession http.HandlerFunc

	APIKeyStatus http.HandlerFunc
	SaveAPIKey   http.HandlerFunc

	SearchPeople            http.HandlerFunc
	SearchCompanies         http.HandlerFunc
	EnrichPerson            http.HandlerFunc
	EnrichCompany           http.HandlerFunc
	BulkEnrichPeople        http.HandlerFunc
	BulkEnrichOrganizations http.HandlerFunc
	OrganizationInfo        http.HandlerFunc
	OrganizationJobs        http.HandlerFunc
	SearchNews              http.HandlerFunc

	ListHistory   http.HandlerFunc
	DeleteHistory http.HandlerFunc

	ListSaved   http.HandlerFunc
	CreateSaved http.HandlerFunc
	UpdateSaved http.HandlerFunc
	DeleteSaved http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/auth/validate", orNotImplemented(deps.ValidateSession))

		r.Get("/api/v1/api-keys/status", orNotImplemented(deps.APIKeyStatus))
		r.Post("/api/v1/api-keys", orNotImplemented(deps.SaveAPIKey))

		r.Route("/api/v1/apollo", func(r chi.Router) {
			r.Post("/search-people", orNotImplemented(deps.SearchPeople))
			r.Post("/search-companies", orNotImplemented(deps.SearchCompanies))
			r.Post("/enrich-person", orNotImplemented(deps.EnrichPerson))
			r.Post("/enrich-company", orNotImplemented(deps.EnrichCompany))
			r.Post("/bulk-enrich-people", orNotImplemented(deps.BulkEnrichPeople))
			r.Post("/bulk-enrich-organizations", orNotImplemented(deps.BulkEnrichOrganizations))
			r.Get("/organization/{id}", orNotImplemented(deps.OrganizationInfo))
			r.Get("/organization/{id}/jobs", orNotImplemented(deps.OrganizationJobs))
			r.Post("/search-news", orNotImplemented(deps.SearchNews))
		})

		r.Get("/api/v1/history", orNotImplemented(deps.ListHistory))
		r.Delete("/api/v1/history/{id}", orNotImplemented(deps.DeleteHistory))

		r.Get("/api/v1/saved", orNotImplemented(deps.ListSaved))
		r.Post("/api/v1/saved", orNotImplemented(deps.CreateSaved))
		r.Patch("/api/v1/saved/{id}", orNotImplemented(deps.UpdateSaved))
		r.Delete("/api/v1/saved/{id}", orNotImplemented(deps.DeleteSaved))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented")
	}
}
