package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Nachikxt91/feedback-backend/internal/cache"
	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

const (
	tempInsight = 0.3

	// reviewClip bounds how much of each review text enters the prompt.
	reviewClip = 300

	cacheTTL = 15 * time.Minute
)

// Completer is the slice of the AI client the service needs.
type Completer interface {
	Call(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Service produces the per-company aggregate insight report.
type Service struct {
	store  store.Store
	cache  cache.Cache
	ai     Completer
	window int
}

func NewService(st store.Store, ca cache.Cache, completer Completer, window int) *Service {
	if window <= 0 {
		window = 50
	}
	return &Service{store: st, cache: ca, ai: completer, window: window}
}

// insightPayload is the JSON shape the model is asked to emit.
type insightPayload struct {
	TopIssues        []string                       `json:"top_issues"`
	TopPraises       []string                       `json:"top_praises"`
	ProductBreakdown map[string]models.ProductStats `json:"product_breakdown"`
	PriorityActions  []string                       `json:"priority_actions"`
	OverallSummary   string                         `json:"overall_summary"`
}

// Generate recomputes the company's insight from its most recent processed
// reviews and overwrites the stored report. With no processed reviews it
// returns a canned empty report without calling the model. Model and parse
// failures degrade to a canned error report; only storage errors propagate.
func (s *Service) Generate(ctx context.Context, companyID uuid.UUID, tctx models.TenantContext) (*models.Insight, error) {
	reviews, err := s.store.ListProcessedReviews(ctx, companyID, s.window)
	if err != nil {
		return nil, fmt.Errorf("listing processed reviews: %w", err)
	}

	if len(reviews) == 0 {
		return &models.Insight{
			CompanyID:        companyID,
			TopIssues:        []string{},
			TopPraises:       []string{},
			ProductBreakdown: map[string]models.ProductStats{},
			PriorityActions:  []string{},
			OverallSummary:   "No processed reviews available yet.",
			ReviewCount:      0,
			GeneratedAt:      time.Now().UTC(),
		}, nil
	}

	payload := s.analyze(ctx, companyID, tctx, reviews)

	result := &models.Insight{
		CompanyID:        companyID,
		TopIssues:        orEmpty(payload.TopIssues),
		TopPraises:       orEmpty(payload.TopPraises),
		ProductBreakdown: payload.ProductBreakdown,
		PriorityActions:  orEmpty(payload.PriorityActions),
		OverallSummary:   payload.OverallSummary,
		ReviewCount:      len(reviews),
		GeneratedAt:      time.Now().UTC(),
	}
	if result.ProductBreakdown == nil {
		result.ProductBreakdown = map[string]models.ProductStats{}
	}

	if err := s.store.UpsertInsight(ctx, result); err != nil {
		return nil, fmt.Errorf("storing insight: %w", err)
	}

	if body, err := json.Marshal(result); err == nil {
		if cerr := s.cache.Set(ctx, cache.InsightKey(companyID), body, cacheTTL); cerr != nil {
			slog.Warn("failed to cache insight", "company_id", companyID, "error", cerr)
		}
	}

	slog.Info("insight generated", "company_id", companyID, "reviews_analyzed", result.ReviewCount)
	return result, nil
}

func (s *Service) analyze(ctx context.Context, companyID uuid.UUID, tctx models.TenantContext, reviews []*models.Review) insightPayload {
	raw, err := s.ai.Call(ctx, insightPrompt(tctx, reviews), tempInsight)
	if err != nil {
		slog.Error("insight generation failed", "company_id", companyID, "error", err)
		return errorPayload()
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		slog.Error("insight response parsing failed", "company_id", companyID, "error", err)
		return errorPayload()
	}
	return payload
}

func errorPayload() insightPayload {
	return insightPayload{
		TopIssues:        []string{"Unable to generate insights at this time"},
		TopPraises:       []string{},
		ProductBreakdown: map[string]models.ProductStats{},
		PriorityActions:  []string{"Retry insight generation later"},
		OverallSummary:   "Insight generation encountered an error. Please try again.",
	}
}

// GetCached returns the stored insight, checking redis before Postgres.
// Returns store.ErrNotFound when no insight has been generated yet.
func (s *Service) GetCached(ctx context.Context, companyID uuid.UUID) (*models.Insight, error) {
	if body, ok, err := s.cache.Get(ctx, cache.InsightKey(companyID)); err == nil && ok {
		var cached models.Insight
		if uerr := json.Unmarshal(body, &cached); uerr == nil {
			return &cached, nil
		}
	}
	return s.store.GetInsight(ctx, companyID)
}

// stripFences removes a surrounding markdown code fence and a leading "json"
// language tag. Models wrap JSON this way often enough to handle it here.
func stripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		if idx := strings.IndexByte(clean, '\n'); idx >= 0 {
			clean = clean[idx+1:]
		} else {
			clean = clean[3:]
		}
	}
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	clean = strings.TrimSpace(clean)
	clean = strings.TrimPrefix(clean, "json")
	return strings.TrimSpace(clean)
}

func insightPrompt(tctx models.TenantContext, reviews []*models.Review) string {
	var block strings.Builder
	for i, r := range reviews {
		rating := "No rating"
		if r.Rating != nil {
			rating = fmt.Sprintf("Rating: %d/5", *r.Rating)
		}
		product := ""
		if r.Product != nil && *r.Product != "" {
			product = " | Product: " + *r.Product
		}
		sentiment := models.SentimentUnknown
		if r.Sentiment != nil && *r.Sentiment != "" {
			sentiment = *r.Sentiment
		}
		fmt.Fprintf(&block, "%d. [%s%s | Sentiment: %s] %s\n", i+1, rating, product, sentiment, clip(r.Text, reviewClip))
	}

	products := strings.Join(tctx.Products, ", ")
	if products == "" {
		products = "Not specified"
	}

	return fmt.Sprintf(`You are a senior business analyst. Analyze the following customer reviews for a company and produce structured insights.

=== COMPANY CONTEXT ===
Company: %s
Industry: %s
Description: %s
Products: %s

=== RECENT REVIEWS (%d total) ===
%s
=== TASK ===
Produce a JSON object with these exact keys:
{
  "top_issues": ["issue1", "issue2", "issue3"],
  "top_praises": ["praise1", "praise2", "praise3"],
  "product_breakdown": {"product_name": {"positive": 0, "negative": 0, "key_feedback": "..."}},
  "priority_actions": ["action1", "action2", "action3"],
  "overall_summary": "2-3 sentence summary of the feedback landscape"
}

Rules:
- Be specific to THIS company and industry, not generic
- Reference actual products mentioned in reviews
- Actions must be concrete and implementable
- Respond with ONLY the JSON object, no markdown or explanation`,
		tctx.Name, tctx.Industry, tctx.Description, products, len(reviews), block.String())
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
