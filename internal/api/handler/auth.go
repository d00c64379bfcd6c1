package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Nachikxt91/feedback-backend/internal/api/response"
	"github.com/Nachikxt91/feedback-backend/internal/company"
)

// Authenticator is the slice of the company service the auth handlers use.
type Authenticator interface {
	Register(ctx context.Context, in company.RegisterInput) (*company.AuthResult, error)
	Authenticate(ctx context.Context, email, password string) (*company.AuthResult, error)
}

// NewRegisterHandler returns the handler for POST /api/v1/auth/register.
func NewRegisterHandler(svc Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in company.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.Register(r.Context(), in)
		switch {
		case errors.Is(err, company.ErrInvalidInput):
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		case errors.Is(err, company.ErrEmailTaken):
			response.Error(w, http.StatusConflict, "EMAIL_TAKEN", err.Error(), nil)
			return
		case err != nil:
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed", nil)
			return
		}

		response.Created(w, result)
	}
}

// NewLoginHandler returns the handler for POST /api/v1/auth/login.
func NewLoginHandler(svc Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		result, err := svc.Authenticate(r.Context(), req.Email, req.Password)
		if errors.Is(err, company.ErrInvalidCredentials) {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed", nil)
			return
		}

		response.JSON(w, result)
	}
}
