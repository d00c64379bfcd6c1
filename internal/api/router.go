package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/Nachikxt91/feedback-backend/internal/api/middleware"
	"github.com/Nachikxt91/feedback-backend/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc

	SubmitReviewHandler  http.HandlerFunc
	PublicCompanyHandler http.HandlerFunc

	GetCompanyHandler    http.HandlerFunc
	UpdateCompanyHandler http.HandlerFunc
	RotateAPIKeyHandler  http.HandlerFunc

	ListFeedbackHandler  http.HandlerFunc
	EnrichReviewHandler  http.HandlerFunc
	EnrichStatusHandler  http.HandlerFunc
	EnrichPendingHandler http.HandlerFunc
	AnalyticsHandler     http.HandlerFunc

	GetInsightsHandler     http.HandlerFunc
	RefreshInsightsHandler http.HandlerFunc

	ImportCSVHandler  http.HandlerFunc
	ImportTextHandler http.HandlerFunc
	ExportHandler     http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Account creation and login
	r.Post("/api/v1/auth/register", orNotImplemented(deps.RegisterHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))

	// Public review-link routes, addressed by API key and rate limited per key
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.ResolveAPIKey)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/public/{apiKey}/reviews", orNotImplemented(deps.SubmitReviewHandler))
		r.Get("/api/v1/public/{apiKey}/company", orNotImplemented(deps.PublicCompanyHandler))
	})

	// Authenticated dashboard routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/company", orNotImplemented(deps.GetCompanyHandler))
		r.Patch("/api/v1/company", orNotImplemented(deps.UpdateCompanyHandler))
		r.Post("/api/v1/company/api-key", orNotImplemented(deps.RotateAPIKeyHandler))

		r.Get("/api/v1/feedback", orNotImplemented(deps.ListFeedbackHandler))
		r.Post("/api/v1/feedback/{reviewID}/enrich", orNotImplemented(deps.EnrichReviewHandler))
		r.Get("/api/v1/feedback/{reviewID}/status", orNotImplemented(deps.EnrichStatusHandler))
		r.Post("/api/v1/feedback/enrich-pending", orNotImplemented(deps.EnrichPendingHandler))
		r.Get("/api/v1/analytics", orNotImplemented(deps.AnalyticsHandler))

		r.Get("/api/v1/insights", orNotImplemented(deps.GetInsightsHandler))
		r.Post("/api/v1/insights/refresh", orNotImplemented(deps.RefreshInsightsHandler))

		r.Post("/api/v1/import/csv", orNotImplemented(deps.ImportCSVHandler))
		r.Post("/api/v1/import/text", orNotImplemented(deps.ImportTextHandler))
		r.Get("/api/v1/export", orNotImplemented(deps.ExportHandler))
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
