package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	mw "github.com/Nachikxt91/feedback-backend/internal/api/middleware"
	"github.com/Nachikxt91/feedback-backend/internal/api/response"
	"github.com/Nachikxt91/feedback-backend/internal/company"
	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// CompanyManager is the slice of the company service the profile handlers use.
type CompanyManager interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, id uuid.UUID, in company.UpdateInput) (*models.Company, error)
	RotateAPIKey(ctx context.Context, id uuid.UUID) (string, error)
}

// NewGetCompanyHandler returns the handler for GET /api/v1/company.
func NewGetCompanyHandler(svc CompanyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		c, err := svc.Get(r.Context(), companyID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "COMPANY_NOT_FOUND", "Company not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load company", nil)
			return
		}
		response.JSON(w, c)
	}
}

// NewUpdateCompanyHandler returns the handler for PATCH /api/v1/company.
func NewUpdateCompanyHandler(svc CompanyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		var in company.UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		c, err := svc.Update(r.Context(), companyID, in)
		switch {
		case errors.Is(err, company.ErrInvalidInput):
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		case errors.Is(err, store.ErrNotFound):
			response.Error(w, http.StatusNotFound, "COMPANY_NOT_FOUND", "Company not found", nil)
			return
		case err != nil:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update company", nil)
			return
		}
		response.JSON(w, c)
	}
}

// NewRotateAPIKeyHandler returns the handler for POST /api/v1/company/api-key.
// Rotation invalidates the previous public review link immediately.
func NewRotateAPIKeyHandler(svc CompanyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		apiKey, err := svc.RotateAPIKey(r.Context(), companyID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "COMPANY_NOT_FOUND", "Company not found", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to rotate API key", nil)
			return
		}
		response.JSON(w, map[string]string{"api_key": apiKey})
	}
}
