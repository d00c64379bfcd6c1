package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachikxt91/feedback-backend/internal/api"
	mw "github.com/Nachikxt91/feedback-backend/internal/api/middleware"
	"github.com/Nachikxt91/feedback-backend/internal/cache"
	"github.com/Nachikxt91/feedback-backend/internal/company"
	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// --- stub store that knows no companies (all auth fails) ---

type stubStore struct{}

func (s *stubStore) Ping(_ context.Context) error { return nil }

func (s *stubStore) CreateCompany(_ context.Context, _ *models.Company) error { return nil }
func (s *stubStore) GetCompany(_ context.Context, _ uuid.UUID) (*models.Company, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) GetCompanyByEmail(_ context.Context, _ string) (*models.Company, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) GetCompanyByAPIKey(_ context.Context, _ string) (*models.Company, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) GetCompanyBySlug(_ context.Context, _ string) (*models.Company, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) SlugExists(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
	return false, nil
}
func (s *stubStore) UpdateCompany(_ context.Context, _ uuid.UUID, _ ...store.CompanyUpdateOption) (*models.Company, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) UpdateCompanyAPIKey(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (s *stubStore) CreateReview(_ context.Context, _ *models.Review) error    { return nil }
func (s *stubStore) CreateReviews(_ context.Context, _ []*models.Review) error { return nil }
func (s *stubStore) GetReview(_ context.Context, _, _ uuid.UUID) (*models.Review, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) ListReviews(_ context.Context, _ store.ReviewFilter) ([]*models.Review, int, error) {
	return nil, 0, nil
}
func (s *stubStore) ListUnprocessedReviews(_ context.Context, _ uuid.UUID, _ int) ([]*models.Review, error) {
	return nil, nil
}
func (s *stubStore) ListProcessedReviews(_ context.Context, _ uuid.UUID, _ int) ([]*models.Review, error) {
	return nil, nil
}
func (s *stubStore) MarkReviewProcessed(_ context.Context, _ uuid.UUID, _ models.Enrichment) error {
	return nil
}
func (s *stubStore) ReviewAnalytics(_ context.Context, _ uuid.UUID) (*models.Analytics, error) {
	return nil, nil
}
func (s *stubStore) UpsertInsight(_ context.Context, _ *models.Insight) error { return nil }
func (s *stubStore) GetInsight(_ context.Context, _ uuid.UUID) (*models.Insight, error) {
	return nil, store.ErrNotFound
}

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *stubCache) Ping(_ context.Context) error                                     { return nil }
func (c *stubCache) SetEnrichStatus(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) error {
	return nil
}
func (c *stubCache) GetEnrichStatus(_ context.Context, _ uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

func newTestRouter() http.Handler {
	tokens := company.NewTokenManager("router-test-secret", time.Hour)
	companies := company.NewService(&stubStore{}, tokens)
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(tokens, companies),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_DashboardEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/company"},
		{"PATCH", "/api/v1/company"},
		{"POST", "/api/v1/company/api-key"},
		{"GET", "/api/v1/feedback"},
		{"POST", "/api/v1/feedback/enrich-pending"},
		{"GET", "/api/v1/feedback/11111111-1111-1111-1111-111111111111/status"},
		{"GET", "/api/v1/analytics"},
		{"GET", "/api/v1/insights"},
		{"POST", "/api/v1/insights/refresh"},
		{"POST", "/api/v1/import/csv"},
		{"POST", "/api/v1/import/text"},
		{"GET", "/api/v1/export"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_PublicRoutes_UnknownKeyIs404(t *testing.T) {
	router := newTestRouter()

	for _, ep := range []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/public/fb_deadbeef/reviews"},
		{"GET", "/api/v1/public/fb_deadbeef/company"},
	} {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNotFound, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "COMPANY_NOT_FOUND", errObj["code"])
		})
	}
}

func TestRouter_AuthRoutes_Public(t *testing.T) {
	router := newTestRouter()

	// Wired with no handler, so 501 rather than 401 proves the route is
	// reachable without credentials.
	req := httptest.NewRequest("POST", "/api/v1/auth/register", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Verify the stubs satisfy the real interfaces.
var _ store.Store = (*stubStore)(nil)
var _ cache.Cache = (*stubCache)(nil)
