package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	mw "github.com/Nachikxt91/feedback-backend/internal/api/middleware"
	"github.com/Nachikxt91/feedback-backend/internal/api/response"
	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// InsightProvider is the slice of the insight service the handlers use.
type InsightProvider interface {
	Generate(ctx context.Context, companyID uuid.UUID, tctx models.TenantContext) (*models.Insight, error)
	GetCached(ctx context.Context, companyID uuid.UUID) (*models.Insight, error)
}

// NewGetInsightsHandler returns the handler for GET /api/v1/insights.
func NewGetInsightsHandler(svc InsightProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		insight, err := svc.GetCached(r.Context(), companyID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "INSIGHTS_NOT_FOUND",
				"No insights generated yet, call refresh first", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load insights", nil)
			return
		}
		response.JSON(w, insight)
	}
}

// NewRefreshInsightsHandler returns the handler for
// POST /api/v1/insights/refresh. Generation is synchronous: one provider
// call over the recent review window.
func NewRefreshInsightsHandler(svc InsightProvider, tenants TenantContextProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		tctx, err := tenants.Context(r.Context(), companyID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load company", nil)
			return
		}

		insight, err := svc.Generate(r.Context(), companyID, tctx)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate insights", nil)
			return
		}
		response.JSON(w, insight)
	}
}
