package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/Nachikxt91/feedback-backend/internal/api/middleware"
	"github.com/Nachikxt91/feedback-backend/internal/api/response"
	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// FeedbackLister lists and aggregates a company's reviews.
type FeedbackLister interface {
	List(ctx context.Context, filter store.ReviewFilter) ([]*models.Review, int, error)
	Analytics(ctx context.Context, companyID uuid.UUID) (*models.Analytics, error)
}

// Enricher triggers enrichment passes in the background.
type Enricher interface {
	EnrichReviewAsync(companyID, reviewID uuid.UUID, tctx models.TenantContext)
	EnrichPendingAsync(companyID uuid.UUID, tctx models.TenantContext, batchSize int)
}

// EnrichStatusProvider reports the advisory pipeline status of one review.
type EnrichStatusProvider interface {
	EnrichStatus(ctx context.Context, reviewID uuid.UUID) (string, bool, error)
}

// TenantContextProvider resolves the prompt-injection context for a company.
type TenantContextProvider interface {
	Context(ctx context.Context, companyID uuid.UUID) (models.TenantContext, error)
}

// NewListFeedbackHandler returns the handler for GET /api/v1/feedback.
// Filters: sentiment, category, product, search; pagination: page, limit.
func NewListFeedbackHandler(svc FeedbackLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		filter := store.ReviewFilter{
			CompanyID: companyID,
			Sentiment: q.Get("sentiment"),
			Category:  q.Get("category"),
			Product:   q.Get("product"),
			Search:    q.Get("search"),
			Page:      page,
			Limit:     limit,
		}

		reviews, total, err := svc.List(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list feedback", nil)
			return
		}
		if reviews == nil {
			reviews = []*models.Review{}
		}

		page, limit = normalizePage(page, limit)
		response.Collection(w, reviews, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewEnrichReviewHandler returns the handler for
// POST /api/v1/feedback/{reviewID}/enrich. The pass runs in the background;
// an already-processed review makes it a no-op.
func NewEnrichReviewHandler(svc Enricher, tenants TenantContextProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}
		reviewID, err := uuid.Parse(chi.URLParam(r, "reviewID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "reviewID must be a UUID", nil)
			return
		}

		tctx, err := tenants.Context(r.Context(), companyID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load company", nil)
			return
		}

		svc.EnrichReviewAsync(companyID, reviewID, tctx)
		response.Accepted(w, map[string]string{
			"review_id": reviewID.String(),
			"status":    "queued",
		})
	}
}

// NewEnrichPendingHandler returns the handler for
// POST /api/v1/feedback/enrich-pending. Body is optional:
// {"batch_size": n} overrides the configured default.
func NewEnrichPendingHandler(svc Enricher, tenants TenantContextProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		var req struct {
			BatchSize int `json:"batch_size"`
		}
		// An empty body is fine; only reject bodies that fail to parse.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		tctx, err := tenants.Context(r.Context(), companyID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load company", nil)
			return
		}

		svc.EnrichPendingAsync(companyID, tctx, req.BatchSize)
		response.Accepted(w, map[string]string{"status": "queued"})
	}
}

// NewEnrichStatusHandler returns the handler for
// GET /api/v1/feedback/{reviewID}/status. The status comes from the cache
// mirror and is advisory; an evicted entry reads as unknown.
func NewEnrichStatusHandler(svc EnrichStatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mw.GetCompanyID(r); !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}
		reviewID, err := uuid.Parse(chi.URLParam(r, "reviewID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "reviewID must be a UUID", nil)
			return
		}

		status, found, err := svc.EnrichStatus(r.Context(), reviewID)
		if err != nil || !found {
			status = "unknown"
		}
		response.JSON(w, map[string]string{
			"review_id": reviewID.String(),
			"status":    status,
		})
	}
}

// NewAnalyticsHandler returns the handler for GET /api/v1/analytics.
func NewAnalyticsHandler(svc FeedbackLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		analytics, err := svc.Analytics(r.Context(), companyID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute analytics", nil)
			return
		}
		response.JSON(w, analytics)
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
