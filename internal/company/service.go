package company

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

var (
	ErrEmailTaken         = errors.New("a company with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
)

// apiKeyBytes yields fb_<48 hex chars>, the public review-link credential.
const apiKeyBytes = 24

// Service manages company accounts: registration, login, profile and the
// public API key used on review links.
type Service struct {
	store  store.Store
	tokens *TokenManager
}

func NewService(st store.Store, tokens *TokenManager) *Service {
	return &Service{store: st, tokens: tokens}
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Description string   `json:"description"`
	Industry    string   `json:"industry"`
	Products    []string `json:"products"`
}

// AuthResult pairs the issued token with the company profile.
type AuthResult struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	Company     *models.Company `json:"company"`
}

// Register creates a company account with a hashed password, a unique slug
// derived from the name and a fresh public API key, then issues a token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: name and a valid email are required", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	slug, err := s.uniqueSlug(ctx, name, uuid.Nil)
	if err != nil {
		return nil, err
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	company := &models.Company{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Description:  strings.TrimSpace(in.Description),
		Industry:     strings.TrimSpace(in.Industry),
		Products:     cleanProducts(in.Products),
		Slug:         slug,
		APIKey:       apiKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateCompany(ctx, company); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating company: %w", err)
	}

	token, err := s.tokens.Issue(company.ID, company.Email)
	if err != nil {
		return nil, err
	}

	slog.Info("company registered", "company_id", company.ID, "slug", company.Slug)
	return &AuthResult{AccessToken: token, TokenType: "bearer", Company: company}, nil
}

// Authenticate verifies email and password and issues a fresh token. The
// error is identical for unknown email and wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	company, err := s.store.GetCompanyByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up company: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(company.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(company.ID, company.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: token, TokenType: "bearer", Company: company}, nil
}

// Get returns the company profile.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return s.store.GetCompany(ctx, id)
}

// GetByAPIKey resolves a public review-link key to its company.
func (s *Service) GetByAPIKey(ctx context.Context, apiKey string) (*models.Company, error) {
	return s.store.GetCompanyByAPIKey(ctx, apiKey)
}

// UpdateInput carries optional profile changes; nil fields are untouched.
type UpdateInput struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Industry    *string   `json:"industry"`
	Products    *[]string `json:"products"`
}

// Update applies profile changes. A name change regenerates the slug,
// keeping it unique across companies.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Company, error) {
	var opts []store.CompanyUpdateOption
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		slug, err := s.uniqueSlug(ctx, name, id)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithName(name), store.WithSlug(slug))
	}
	if in.Description != nil {
		opts = append(opts, store.WithDescription(strings.TrimSpace(*in.Description)))
	}
	if in.Industry != nil {
		opts = append(opts, store.WithIndustry(strings.TrimSpace(*in.Industry)))
	}
	if in.Products != nil {
		opts = append(opts, store.WithProducts(cleanProducts(*in.Products)))
	}
	if len(opts) == 0 {
		return s.store.GetCompany(ctx, id)
	}
	return s.store.UpdateCompany(ctx, id, opts...)
}

// RotateAPIKey replaces the public API key. Old review links stop working.
func (s *Service) RotateAPIKey(ctx context.Context, id uuid.UUID) (string, error) {
	apiKey, err := generateAPIKey()
	if err != nil {
		return "", err
	}
	if err := s.store.UpdateCompanyAPIKey(ctx, id, apiKey); err != nil {
		return "", fmt.Errorf("rotating api key: %w", err)
	}
	slog.Info("api key rotated", "company_id", id)
	return apiKey, nil
}

// Context returns the prompt-injection view of a company for the AI pipeline.
func (s *Service) Context(ctx context.Context, id uuid.UUID) (models.TenantContext, error) {
	company, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return models.TenantContext{}, err
	}
	return company.Context(), nil
}

// uniqueSlug slugifies the name and appends -2, -3, ... until no other
// company holds it.
func (s *Service) uniqueSlug(ctx context.Context, name string, exclude uuid.UUID) (string, error) {
	base := slugify(name)
	if base == "" {
		base = "company"
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := s.store.SlugExists(ctx, slug, exclude)
		if err != nil {
			return "", fmt.Errorf("checking slug: %w", err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// slugify lowercases and collapses anything non-alphanumeric to hyphens.
func slugify(name string) string {
	var b strings.Builder
	prevHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevHyphen = false
		case !prevHyphen:
			b.WriteByte('-')
			prevHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func generateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return "fb_" + hex.EncodeToString(buf), nil
}

func cleanProducts(products []string) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
