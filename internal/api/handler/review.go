package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Nachikxt91/feedback-backend/internal/ai"
	mw "github.com/Nachikxt91/feedback-backend/internal/api/middleware"
	"github.com/Nachikxt91/feedback-backend/internal/api/response"
	"github.com/Nachikxt91/feedback-backend/internal/feedback"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// ReviewSubmitter is the slice of the feedback service the public submission
// handler uses.
type ReviewSubmitter interface {
	SubmitReview(ctx context.Context, companyID uuid.UUID, tctx models.TenantContext, in feedback.SubmitInput) (*feedback.SubmitResult, error)
}

// NewSubmitReviewHandler returns the handler for
// POST /api/v1/public/{apiKey}/reviews. The company is resolved by the
// ResolveAPIKey middleware.
func NewSubmitReviewHandler(svc ReviewSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := mw.GetCompany(r)
		if !ok {
			response.Error(w, http.StatusNotFound, "COMPANY_NOT_FOUND", "Unknown review link", nil)
			return
		}

		var req struct {
			Text    string  `json:"text"`
			Rating  *int    `json:"rating"`
			Product *string `json:"product"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.SubmitReview(r.Context(), c.ID, c.Context(), feedback.SubmitInput{
			Text:    req.Text,
			Rating:  req.Rating,
			Product: req.Product,
		})
		if err != nil {
			var svcErr *ai.ServiceError
			switch {
			case errors.Is(err, feedback.ErrEmptyReview), errors.Is(err, feedback.ErrInvalidRating):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			case errors.As(err, &svcErr):
				response.Error(w, http.StatusBadGateway, "AI_SERVICE_UNAVAILABLE",
					"Could not generate a reply, please try again", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Created(w, result)
	}
}

// publicCompany is the card shown on the public review page. No email, no
// API key, no timestamps.
type publicCompany struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Industry    string   `json:"industry"`
	Products    []string `json:"products"`
	Slug        string   `json:"slug"`
}

// NewPublicCompanyHandler returns the handler for
// GET /api/v1/public/{apiKey}/company.
func NewPublicCompanyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := mw.GetCompany(r)
		if !ok {
			response.Error(w, http.StatusNotFound, "COMPANY_NOT_FOUND", "Unknown review link", nil)
			return
		}
		response.JSON(w, publicCompany{
			Name:        c.Name,
			Description: c.Description,
			Industry:    c.Industry,
			Products:    c.Products,
			Slug:        c.Slug,
		})
	}
}
