package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Nachikxt91/feedback-backend/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const companyColumns = `id, name, email, password_hash, description, industry, products, slug, api_key, created_at, updated_at`

func scanCompany(row pgx.Row) (*models.Company, error) {
	var c models.Company
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Description, &c.Industry,
		&c.Products, &c.Slug, &c.APIKey, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// --- Companies ---

func (s *PostgresStore) CreateCompany(ctx context.Context, company *models.Company) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (id, name, email, password_hash, description, industry, products, slug, api_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		company.ID, company.Name, company.Email, company.PasswordHash, company.Description,
		company.Industry, company.Products, company.Slug, company.APIKey,
		company.CreatedAt, company.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, err
}

func (s *PostgresStore) GetCompanyByEmail(ctx context.Context, email string) (*models.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE email = $1`, email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get company by email: %w", err)
	}
	return c, err
}

func (s *PostgresStore) GetCompanyByAPIKey(ctx context.Context, apiKey string) (*models.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE api_key = $1`, apiKey))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get company by api key: %w", err)
	}
	return c, err
}

func (s *PostgresStore) GetCompanyBySlug(ctx context.Context, slug string) (*models.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE slug = $1`, slug))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get company by slug: %w", err)
	}
	return c, err
}

func (s *PostgresStore) SlugExists(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM companies WHERE slug = $1 AND id <> $2)`, slug, exclude,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateCompany(ctx context.Context, id uuid.UUID, opts ...CompanyUpdateOption) (*models.Company, error) {
	params := ApplyCompanyUpdates(opts...)

	sets := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}
	argIdx := 3

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.Name != nil {
		addSet("name", *params.Name)
	}
	if params.Description != nil {
		addSet("description", *params.Description)
	}
	if params.Industry != nil {
		addSet("industry", *params.Industry)
	}
	if params.Products != nil {
		addSet("products", *params.Products)
	}
	if params.Slug != nil {
		addSet("slug", *params.Slug)
	}

	query := fmt.Sprintf(
		`UPDATE companies SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), companyColumns)

	c, err := scanCompany(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("update company: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateCompanyAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET api_key = $2, updated_at = NOW() WHERE id = $1`, id, apiKey)
	if err != nil {
		return fmt.Errorf("update company api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Reviews ---

const reviewColumns = `id, company_id, review, rating, product, source, ai_reply, ai_summary, ai_actions, sentiment, category, processed, processed_at, created_at`

func scanReview(row pgx.Row) (*models.Review, error) {
	var r models.Review
	err := row.Scan(&r.ID, &r.CompanyID, &r.Text, &r.Rating, &r.Product, &r.Source,
		&r.AIReply, &r.Summary, &r.ActionItems, &r.Sentiment, &r.Category,
		&r.Processed, &r.ProcessedAt, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReviews(rows pgx.Rows) ([]*models.Review, error) {
	defer rows.Close()
	var reviews []*models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *PostgresStore) CreateReview(ctx context.Context, review *models.Review) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reviews (id, company_id, review, rating, product, source, ai_reply, ai_summary, ai_actions, sentiment, category, processed, processed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		review.ID, review.CompanyID, review.Text, review.Rating, review.Product, review.Source,
		review.AIReply, review.Summary, review.ActionItems, review.Sentiment, review.Category,
		review.Processed, review.ProcessedAt, review.CreatedAt)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateReviews(ctx context.Context, reviews []*models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, []any{r.ID, r.CompanyID, r.Text, r.Rating, r.Product, r.Source,
			r.AIReply, r.Summary, r.ActionItems, r.Sentiment, r.Category,
			r.Processed, r.ProcessedAt, r.CreatedAt})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"reviews"},
		[]string{"id", "company_id", "review", "rating", "product", "source", "ai_reply",
			"ai_summary", "ai_actions", "sentiment", "category", "processed", "processed_at", "created_at"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("bulk create reviews: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReview(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (*models.Review, error) {
	r, err := scanReview(s.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1 AND company_id = $2`, id, companyID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, err
}

func (s *PostgresStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]*models.Review, int, error) {
	// Build WHERE clause dynamically
	conditions := []string{"company_id = $1"}
	args := []any{filter.CompanyID}
	argIdx := 2

	if filter.Sentiment != "" {
		conditions = append(conditions, fmt.Sprintf("sentiment = $%d", argIdx))
		args = append(args, filter.Sentiment)
		argIdx++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.Product != "" {
		conditions = append(conditions, fmt.Sprintf("product = $%d", argIdx))
		args = append(args, filter.Product)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("review ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	// Count query
	var total int
	countQuery := "SELECT COUNT(*) FROM reviews WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	// Normalize pagination
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	// Data query
	dataQuery := fmt.Sprintf(
		`SELECT %s FROM reviews WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		reviewColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	reviews, err := collectReviews(rows)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (s *PostgresStore) ListUnprocessedReviews(ctx context.Context, companyID uuid.UUID, limit int) ([]*models.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE company_id = $1 AND NOT processed ORDER BY created_at ASC LIMIT $2`,
		companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed reviews: %w", err)
	}
	return collectReviews(rows)
}

func (s *PostgresStore) ListProcessedReviews(ctx context.Context, companyID uuid.UUID, limit int) ([]*models.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE company_id = $1 AND processed ORDER BY created_at DESC LIMIT $2`,
		companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list processed reviews: %w", err)
	}
	return collectReviews(rows)
}

// MarkReviewProcessed persists all four enrichment fields plus the processed
// flag in a single update. This is the only write the enrichment pass performs.
func (s *PostgresStore) MarkReviewProcessed(ctx context.Context, id uuid.UUID, enrichment models.Enrichment) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reviews SET ai_summary = $2, ai_actions = $3, sentiment = $4, category = $5,
		 processed = TRUE, processed_at = $6 WHERE id = $1`,
		id, enrichment.Summary, enrichment.ActionItems, enrichment.Sentiment,
		enrichment.Category, enrichment.ProcessedAt)
	if err != nil {
		return fmt.Errorf("mark review processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ReviewAnalytics(ctx context.Context, companyID uuid.UUID) (*models.Analytics, error) {
	a := &models.Analytics{
		RatingDistribution:   map[string]int{},
		SentimentBreakdown:   map[string]int{},
		CategoryDistribution: map[string]int{},
		ProductDistribution:  map[string]int{},
	}

	var avg *float64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE processed),
		        COUNT(*) FILTER (WHERE NOT processed),
		        AVG(rating),
		        MAX(created_at)
		 FROM reviews WHERE company_id = $1`, companyID,
	).Scan(&a.TotalFeedback, &a.ProcessedCount, &a.PendingCount, &avg, &a.LatestSubmission)
	if err != nil {
		return nil, fmt.Errorf("review totals: %w", err)
	}
	if avg != nil {
		rounded := math.Round(*avg*100) / 100
		a.AverageRating = &rounded
	}

	if err := s.distribution(ctx, companyID, "rating::text", a.RatingDistribution); err != nil {
		return nil, err
	}
	if err := s.distribution(ctx, companyID, "sentiment", a.SentimentBreakdown); err != nil {
		return nil, err
	}
	if err := s.distribution(ctx, companyID, "category", a.CategoryDistribution); err != nil {
		return nil, err
	}
	if err := s.distribution(ctx, companyID, "product", a.ProductDistribution); err != nil {
		return nil, err
	}

	return a, nil
}

// distribution fills dest with value -> count for one review column.
// expr comes from a fixed call-site set, never user input.
func (s *PostgresStore) distribution(ctx context.Context, companyID uuid.UUID, expr string, dest map[string]int) error {
	query := fmt.Sprintf(
		`SELECT %s AS value, COUNT(*) FROM reviews
		 WHERE company_id = $1 AND %s IS NOT NULL GROUP BY value`, expr, expr)

	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return fmt.Errorf("distribution %s: %w", expr, err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return fmt.Errorf("scan distribution %s: %w", expr, err)
		}
		dest[value] = count
	}
	return rows.Err()
}

// --- Insights ---

func (s *PostgresStore) UpsertInsight(ctx context.Context, insight *models.Insight) error {
	issues, err := json.Marshal(insight.TopIssues)
	if err != nil {
		return fmt.Errorf("marshal top issues: %w", err)
	}
	praises, err := json.Marshal(insight.TopPraises)
	if err != nil {
		return fmt.Errorf("marshal top praises: %w", err)
	}
	breakdown, err := json.Marshal(insight.ProductBreakdown)
	if err != nil {
		return fmt.Errorf("marshal product breakdown: %w", err)
	}
	actions, err := json.Marshal(insight.PriorityActions)
	if err != nil {
		return fmt.Errorf("marshal priority actions: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO insights (company_id, top_issues, top_praises, product_breakdown, priority_actions, overall_summary, review_count, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (company_id) DO UPDATE SET
		   top_issues = EXCLUDED.top_issues,
		   top_praises = EXCLUDED.top_praises,
		   product_breakdown = EXCLUDED.product_breakdown,
		   priority_actions = EXCLUDED.priority_actions,
		   overall_summary = EXCLUDED.overall_summary,
		   review_count = EXCLUDED.review_count,
		   generated_at = EXCLUDED.generated_at`,
		insight.CompanyID, issues, praises, breakdown, actions,
		insight.OverallSummary, insight.ReviewCount, insight.GeneratedAt)
	if err != nil {
		return fmt.Errorf("upsert insight: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetInsight(ctx context.Context, companyID uuid.UUID) (*models.Insight, error) {
	var (
		in        models.Insight
		issues    []byte
		praises   []byte
		breakdown []byte
		actions   []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT company_id, top_issues, top_praises, product_breakdown, priority_actions, overall_summary, review_count, generated_at
		 FROM insights WHERE company_id = $1`, companyID,
	).Scan(&in.CompanyID, &issues, &praises, &breakdown, &actions,
		&in.OverallSummary, &in.ReviewCount, &in.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}

	if err := json.Unmarshal(issues, &in.TopIssues); err != nil {
		return nil, fmt.Errorf("unmarshal top issues: %w", err)
	}
	if err := json.Unmarshal(praises, &in.TopPraises); err != nil {
		return nil, fmt.Errorf("unmarshal top praises: %w", err)
	}
	if err := json.Unmarshal(breakdown, &in.ProductBreakdown); err != nil {
		return nil, fmt.Errorf("unmarshal product breakdown: %w", err)
	}
	if err := json.Unmarshal(actions, &in.PriorityActions); err != nil {
		return nil, fmt.Errorf("unmarshal priority actions: %w", err)
	}

	return &in, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
