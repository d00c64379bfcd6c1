package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("feedback_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

// seedCompany inserts a company with a distinct email, slug, and API key per suffix.
func seedCompany(t *testing.T, s store.Store, suffix string) *models.Company {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := &models.Company{
		ID:           uuid.New(),
		Name:         "Acme " + suffix,
		Email:        fmt.Sprintf("team-%s@acme.test", suffix),
		PasswordHash: "bcrypt-hash-here",
		Description:  "Consumer hardware",
		Industry:     "Electronics",
		Products:     []string{"Widget", "Gizmo"},
		Slug:         "acme-" + suffix,
		APIKey:       "fb_key_" + suffix,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateCompany(context.Background(), c))
	return c
}

// seedReview inserts one review created at the given time.
func seedReview(t *testing.T, s store.Store, companyID uuid.UUID, text string, createdAt time.Time) *models.Review {
	t.Helper()
	r := &models.Review{
		ID:        uuid.New(),
		CompanyID: companyID,
		Text:      text,
		Source:    models.SourceWeb,
		CreatedAt: createdAt,
	}
	require.NoError(t, s.CreateReview(context.Background(), r))
	return r
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// --- Company Tests ---

func TestCompany_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	created := seedCompany(t, s, "one")

	byID, err := s.GetCompany(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
	assert.Equal(t, []string{"Widget", "Gizmo"}, byID.Products)

	byEmail, err := s.GetCompanyByEmail(ctx, created.Email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byKey, err := s.GetCompanyByAPIKey(ctx, created.APIKey)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byKey.ID)

	bySlug, err := s.GetCompanyBySlug(ctx, "acme-one")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
}

func TestCompany_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetCompany(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetCompanyByAPIKey(context.Background(), "fb_nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompany_DuplicateEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	first := seedCompany(t, s, "dup")
	second := *first
	second.ID = uuid.New()
	second.Slug = "acme-dup-2"
	second.APIKey = "fb_other0000000000000000000000000000000000000000"

	err := s.CreateCompany(context.Background(), &second)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestSlugExists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "slug")

	exists, err := s.SlugExists(ctx, "acme-slug", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)

	// A company's own slug does not count against it.
	exists, err = s.SlugExists(ctx, "acme-slug", c.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.SlugExists(ctx, "unclaimed", uuid.Nil)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateCompany(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "upd")

	updated, err := s.UpdateCompany(ctx, c.ID,
		store.WithDescription("We make robots now"),
		store.WithProducts([]string{"Robot"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "We make robots now", updated.Description)
	assert.Equal(t, []string{"Robot"}, updated.Products)
	// Untouched fields survive a partial update.
	assert.Equal(t, c.Name, updated.Name)
	assert.Equal(t, c.Slug, updated.Slug)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))
}

func TestUpdateCompanyAPIKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "rot")
	newKey := "fb_rotated00000000000000000000000000000000000000"

	require.NoError(t, s.UpdateCompanyAPIKey(ctx, c.ID, newKey))

	_, err := s.GetCompanyByAPIKey(ctx, c.APIKey)
	assert.ErrorIs(t, err, store.ErrNotFound)

	byNew, err := s.GetCompanyByAPIKey(ctx, newKey)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byNew.ID)
}

// --- Review Tests ---

func TestReview_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "rev")
	now := time.Now().UTC().Truncate(time.Microsecond)
	r := &models.Review{
		ID:        uuid.New(),
		CompanyID: c.ID,
		Text:      "The widget broke after a week",
		Rating:    intPtr(2),
		Product:   strPtr("Widget"),
		Source:    models.SourceWeb,
		AIReply:   strPtr("Sorry to hear that."),
		CreatedAt: now,
	}
	require.NoError(t, s.CreateReview(ctx, r))

	got, err := s.GetReview(ctx, r.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Text, got.Text)
	assert.Equal(t, 2, *got.Rating)
	assert.Equal(t, "Widget", *got.Product)
	assert.Equal(t, "Sorry to hear that.", *got.AIReply)
	assert.False(t, got.Processed)
	assert.Nil(t, got.ProcessedAt)
}

func TestReview_TenantIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	owner := seedCompany(t, s, "own")
	other := seedCompany(t, s, "oth")
	r := seedReview(t, s, owner.ID, "Only mine to read", time.Now().UTC())

	_, err := s.GetReview(ctx, r.ID, other.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	reviews, total, err := s.ListReviews(ctx, store.ReviewFilter{CompanyID: other.ID})
	require.NoError(t, err)
	assert.Empty(t, reviews)
	assert.Zero(t, total)
}

func TestListReviews_FiltersAndPagination(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "lst")
	base := time.Now().UTC().Add(-1 * time.Hour).Truncate(time.Microsecond)

	reviews := make([]*models.Review, 0, 30)
	for i := 0; i < 30; i++ {
		sentiment := "Positive"
		if i%3 == 0 {
			sentiment = "Negative"
		}
		reviews = append(reviews, &models.Review{
			ID:        uuid.New(),
			CompanyID: c.ID,
			Text:      fmt.Sprintf("Review number %d about shipping", i),
			Source:    models.SourceCSV,
			Sentiment: strPtr(sentiment),
			Category:  strPtr("Shipping"),
			Processed: true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, s.CreateReviews(ctx, reviews))

	// Newest first, default page size.
	page1, total, err := s.ListReviews(ctx, store.ReviewFilter{CompanyID: c.ID, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 30, total)
	require.Len(t, page1, 20)
	assert.Equal(t, "Review number 29 about shipping", page1[0].Text)

	page2, _, err := s.ListReviews(ctx, store.ReviewFilter{CompanyID: c.ID, Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, page2, 10)

	// Sentiment filter.
	negatives, total, err := s.ListReviews(ctx, store.ReviewFilter{CompanyID: c.ID, Sentiment: "Negative", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	for _, r := range negatives {
		assert.Equal(t, "Negative", *r.Sentiment)
	}

	// Text search.
	found, total, err := s.ListReviews(ctx, store.ReviewFilter{CompanyID: c.ID, Search: "number 7", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Text, "number 7")
}

func TestListUnprocessedReviews_OldestFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "unp")
	base := time.Now().UTC().Add(-1 * time.Hour).Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		seedReview(t, s, c.ID, fmt.Sprintf("pending %d", i), base.Add(time.Duration(i)*time.Minute))
	}

	got, err := s.ListUnprocessedReviews(ctx, c.ID, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "pending 0", got[0].Text)
	assert.Equal(t, "pending 2", got[2].Text)
}

func TestMarkReviewProcessed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "mrk")
	r := seedReview(t, s, c.ID, "Setup took forever and the manual is wrong", time.Now().UTC())

	processedAt := time.Now().UTC().Truncate(time.Microsecond)
	err := s.MarkReviewProcessed(ctx, r.ID, models.Enrichment{
		Summary:     "Frustrated with setup and documentation",
		ActionItems: "1. Rewrite the setup guide",
		Sentiment:   "Negative",
		Category:    "Onboarding",
		ProcessedAt: processedAt,
	})
	require.NoError(t, err)

	got, err := s.GetReview(ctx, r.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)
	assert.Equal(t, "Frustrated with setup and documentation", *got.Summary)
	assert.Equal(t, "1. Rewrite the setup guide", *got.ActionItems)
	assert.Equal(t, "Negative", *got.Sentiment)
	assert.Equal(t, "Onboarding", *got.Category)
	require.NotNil(t, got.ProcessedAt)
	assert.WithinDuration(t, processedAt, *got.ProcessedAt, time.Millisecond)

	// The processed review now shows up in the processed listing, newest first.
	processed, err := s.ListProcessedReviews(ctx, c.ID, 10)
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, r.ID, processed[0].ID)
}

func TestMarkReviewProcessed_Missing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.MarkReviewProcessed(context.Background(), uuid.New(), models.Enrichment{
		Sentiment: "Neutral", Category: "General", ProcessedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReviewAnalytics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "ana")
	base := time.Now().UTC().Add(-1 * time.Hour).Truncate(time.Microsecond)

	rows := []*models.Review{
		{ID: uuid.New(), CompanyID: c.ID, Text: "Love it", Rating: intPtr(5), Product: strPtr("Widget"),
			Sentiment: strPtr("Positive"), Category: strPtr("Quality"), Source: models.SourceWeb,
			Processed: true, CreatedAt: base},
		{ID: uuid.New(), CompanyID: c.ID, Text: "Hate it", Rating: intPtr(1), Product: strPtr("Widget"),
			Sentiment: strPtr("Negative"), Category: strPtr("Quality"), Source: models.SourceWeb,
			Processed: true, CreatedAt: base.Add(time.Minute)},
		{ID: uuid.New(), CompanyID: c.ID, Text: "No opinion yet", Source: models.SourceCSV,
			CreatedAt: base.Add(2 * time.Minute)},
	}
	require.NoError(t, s.CreateReviews(ctx, rows))

	a, err := s.ReviewAnalytics(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, a.TotalFeedback)
	assert.Equal(t, 2, a.ProcessedCount)
	assert.Equal(t, 1, a.PendingCount)
	require.NotNil(t, a.AverageRating)
	assert.InDelta(t, 3.0, *a.AverageRating, 0.001)
	assert.Equal(t, map[string]int{"1": 1, "5": 1}, a.RatingDistribution)
	assert.Equal(t, map[string]int{"Positive": 1, "Negative": 1}, a.SentimentBreakdown)
	assert.Equal(t, map[string]int{"Quality": 2}, a.CategoryDistribution)
	assert.Equal(t, map[string]int{"Widget": 2}, a.ProductDistribution)
	require.NotNil(t, a.LatestSubmission)
	assert.WithinDuration(t, base.Add(2*time.Minute), *a.LatestSubmission, time.Millisecond)
}

func TestReviewAnalytics_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	c := seedCompany(t, s, "emp")
	a, err := s.ReviewAnalytics(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Zero(t, a.TotalFeedback)
	assert.Nil(t, a.AverageRating)
	assert.Nil(t, a.LatestSubmission)
	assert.Empty(t, a.SentimentBreakdown)
}

// --- Insight Tests ---

func TestInsight_UpsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	c := seedCompany(t, s, "ins")
	first := &models.Insight{
		CompanyID:        c.ID,
		TopIssues:        []string{"Slow shipping"},
		TopPraises:       []string{"Build quality"},
		ProductBreakdown: map[string]models.ProductStats{"Widget": {Positive: 10, Negative: 2, KeyFeedback: "Sturdy but ships late"}},
		PriorityActions:  []string{"1. Switch carriers"},
		OverallSummary:   "Customers like the product but not the delivery times.",
		ReviewCount:      30,
		GeneratedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, s.UpsertInsight(ctx, first))

	got, err := s.GetInsight(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TopIssues, got.TopIssues)
	assert.Equal(t, first.ProductBreakdown, got.ProductBreakdown)
	assert.Equal(t, 30, got.ReviewCount)

	// A second upsert replaces the row.
	second := *first
	second.TopIssues = []string{"Price"}
	second.ReviewCount = 45
	second.GeneratedAt = first.GeneratedAt.Add(time.Hour)
	require.NoError(t, s.UpsertInsight(ctx, &second))

	got, err = s.GetInsight(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Price"}, got.TopIssues)
	assert.Equal(t, 45, got.ReviewCount)
}

func TestGetInsight_Missing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	c := seedCompany(t, s, "mis")
	_, err := s.GetInsight(context.Background(), c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
