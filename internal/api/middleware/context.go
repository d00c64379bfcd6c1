package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

type contextKey string

const (
	companyIDKey   contextKey = "company_id"
	companyKey     contextKey = "company"
	rateSubjectKey contextKey = "rate_subject"
)

// SetCompanyID marks the request as authenticated for the given company.
func SetCompanyID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, companyIDKey, id)
}

func GetCompanyID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(companyIDKey).(uuid.UUID)
	return id, ok
}

// SetCompany attaches the company resolved from a public API key.
func SetCompany(ctx context.Context, c *models.Company) context.Context {
	return context.WithValue(ctx, companyKey, c)
}

func GetCompany(r *http.Request) (*models.Company, bool) {
	c, ok := r.Context().Value(companyKey).(*models.Company)
	return c, ok
}

// SetRateSubject marks the rate-limit window key for this request. The auth
// middlewares set it to the company ID or the public API key.
func SetRateSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, rateSubjectKey, subject)
}

func getRateSubject(r *http.Request) (string, bool) {
	subject, ok := r.Context().Value(rateSubjectKey).(string)
	return subject, ok
}
