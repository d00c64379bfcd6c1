package store

import (
	"context"
	"errors"

	"github.com/Nachikxt91/feedback-backend/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetCompanyByEmail(ctx context.Context, email string) (*models.Company, error)
	GetCompanyByAPIKey(ctx context.Context, apiKey string) (*models.Company, error)
	GetCompanyBySlug(ctx context.Context, slug string) (*models.Company, error)
	SlugExists(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	UpdateCompany(ctx context.Context, id uuid.UUID, opts ...CompanyUpdateOption) (*models.Company, error)
	UpdateCompanyAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error

	CreateReview(ctx context.Context, review *models.Review) error
	CreateReviews(ctx context.Context, reviews []*models.Review) error
	GetReview(ctx context.Context, id uuid.UUID, companyID uuid.UUID) (*models.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]*models.Review, int, error)
	ListUnprocessedReviews(ctx context.Context, companyID uuid.UUID, limit int) ([]*models.Review, error)
	ListProcessedReviews(ctx context.Context, companyID uuid.UUID, limit int) ([]*models.Review, error)
	MarkReviewProcessed(ctx context.Context, id uuid.UUID, enrichment models.Enrichment) error
	ReviewAnalytics(ctx context.Context, companyID uuid.UUID) (*models.Analytics, error)

	UpsertInsight(ctx context.Context, insight *models.Insight) error
	GetInsight(ctx context.Context, companyID uuid.UUID) (*models.Insight, error)
}

// ReviewFilter narrows a tenant-scoped review listing.
type ReviewFilter struct {
	CompanyID uuid.UUID
	Sentiment string
	Category  string
	Product   string
	Search    string
	Page      int
	Limit     int
}

// CompanyUpdateParams collects the optional fields of a company update.
// Nil fields are left untouched.
type CompanyUpdateParams struct {
	Name        *string
	Description *string
	Industry    *string
	Products    *[]string
	Slug        *string
}

type CompanyUpdateOption func(*CompanyUpdateParams)

// ApplyCompanyUpdates folds options into a params struct. Exposed so fakes
// outside this package can honor the same options the real store does.
func ApplyCompanyUpdates(opts ...CompanyUpdateOption) CompanyUpdateParams {
	var p CompanyUpdateParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func WithName(name string) CompanyUpdateOption {
	return func(p *CompanyUpdateParams) {
		p.Name = &name
	}
}

func WithDescription(desc string) CompanyUpdateOption {
	return func(p *CompanyUpdateParams) {
		p.Description = &desc
	}
}

func WithIndustry(industry string) CompanyUpdateOption {
	return func(p *CompanyUpdateParams) {
		p.Industry = &industry
	}
}

func WithProducts(products []string) CompanyUpdateOption {
	return func(p *CompanyUpdateParams) {
		p.Products = &products
	}
}

func WithSlug(slug string) CompanyUpdateOption {
	return func(p *CompanyUpdateParams) {
		p.Slug = &slug
	}
}
