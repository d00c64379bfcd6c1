package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Nachikxt91/feedback-backend/internal/api/response"
	"github.com/Nachikxt91/feedback-backend/internal/company"
	"github.com/Nachikxt91/feedback-backend/internal/store"
)

// Auth authenticates dashboard requests with JWT bearer tokens and resolves
// public review-link API keys to their company.
type Auth struct {
	tokens    *company.TokenManager
	companies *company.Service
}

func NewAuth(tokens *company.TokenManager, companies *company.Service) *Auth {
	return &Auth{tokens: tokens, companies: companies}
}

// Authenticate validates the Bearer token and sets the company ID and rate
// subject in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		companyID, _, err := a.tokens.Verify(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid or expired token", nil)
			return
		}

		ctx := SetCompanyID(r.Context(), companyID)
		ctx = SetRateSubject(ctx, companyID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ResolveAPIKey looks up the {apiKey} URL parameter and attaches the owning
// company to the context. Unknown keys are a 404, not a 401: the key is part
// of a public link, not a credential the caller typed.
func (a *Auth) ResolveAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimSpace(chi.URLParam(r, "apiKey"))
		if apiKey == "" {
			response.Error(w, http.StatusNotFound,
				"COMPANY_NOT_FOUND", "Unknown review link", nil)
			return
		}

		c, err := a.companies.GetByAPIKey(r.Context(), apiKey)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound,
				"COMPANY_NOT_FOUND", "Unknown review link", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to resolve review link", nil)
			return
		}

		ctx := SetCompany(r.Context(), c)
		ctx = SetRateSubject(ctx, apiKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
