package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Nachikxt91/feedback-backend/internal/cache"
	"github.com/Nachikxt91/feedback-backend/internal/config"
	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

var (
	ErrEmptyReview   = errors.New("review text is required")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// statusTTL bounds how long enrichment status keys live in redis. Status is
// advisory; the durable truth is the processed flag on the review row.
const statusTTL = time.Hour

// Completer is the slice of the AI client the service needs.
type Completer interface {
	Call(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Service owns review intake and the enrichment pipeline.
type Service struct {
	store store.Store
	cache cache.Cache
	ai    Completer

	batchSize int
	pacing    time.Duration

	// sleep is swapped in tests to avoid real pacing delays.
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewService(st store.Store, ca cache.Cache, completer Completer, cfg config.EnrichmentConfig) *Service {
	return &Service{
		store:     st,
		cache:     ca,
		ai:        completer,
		batchSize: cfg.BatchSize,
		pacing:    cfg.PacingDelay,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SubmitInput carries a reviewer's submission from the public widget.
type SubmitInput struct {
	Text    string
	Rating  *int
	Product *string
}

// SubmitResult is what the reviewer sees immediately: the generated reply.
type SubmitResult struct {
	ID        uuid.UUID `json:"id"`
	AIReply   string    `json:"ai_reply"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitReview validates the submission, generates the inline reply, persists
// the review unprocessed and kicks off background enrichment. If reply
// generation fails nothing is persisted and the error surfaces to the caller.
func (s *Service) SubmitReview(ctx context.Context, companyID uuid.UUID, tctx models.TenantContext, in SubmitInput) (*SubmitResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyReview
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, ErrInvalidRating
	}

	reply, err := s.ai.Call(ctx, userReplyPrompt(text, in.Rating, tctx), tempReply)
	if err != nil {
		return nil, fmt.Errorf("generating reply: %w", err)
	}

	review := &models.Review{
		ID:        uuid.New(),
		CompanyID: companyID,
		Text:      text,
		Rating:    in.Rating,
		Product:   trimmedPtr(in.Product),
		Source:    models.SourceWeb,
		AIReply:   &reply,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("saving review: %w", err)
	}
	if err := s.cache.SetEnrichStatus(ctx, review.ID, cache.EnrichPending, statusTTL); err != nil {
		slog.Warn("failed to set enrichment status", "review_id", review.ID, "error", err)
	}

	go s.enrichAsync(companyID, review.ID, tctx)

	return &SubmitResult{ID: review.ID, AIReply: reply, CreatedAt: review.CreatedAt}, nil
}

func (s *Service) enrichAsync(companyID, reviewID uuid.UUID, tctx models.TenantContext) {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during background enrichment", "review_id", reviewID, "panic", r)
			if err := s.cache.SetEnrichStatus(ctx, reviewID, cache.EnrichFailed, statusTTL); err != nil {
				slog.Warn("failed to set enrichment status", "review_id", reviewID, "error", err)
			}
		}
	}()
	if err := s.EnrichReview(ctx, companyID, reviewID, tctx); err != nil {
		slog.Error("background enrichment failed", "review_id", reviewID, "error", err)
	}
}

// EnrichReview runs the four analyses for one review and writes the result in
// a single update. A missing or already-processed review is a silent no-op.
// Analysis failures degrade to per-field fallbacks; only storage errors
// propagate to the caller.
func (s *Service) EnrichReview(ctx context.Context, companyID, reviewID uuid.UUID, tctx models.TenantContext) error {
	review, err := s.store.GetReview(ctx, reviewID, companyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading review: %w", err)
	}
	if review.Processed {
		return nil
	}

	if err := s.cache.SetEnrichStatus(ctx, reviewID, cache.EnrichProcessing, statusTTL); err != nil {
		slog.Warn("failed to set enrichment status", "review_id", reviewID, "error", err)
	}

	var summary, actions, sentiment, category string

	// Branches record outcomes into their own slot and always return nil so a
	// failing analysis never cancels its siblings.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.ai.Call(gctx, summaryPrompt(review.Text, review.Rating, tctx), tempSummary)
		if err != nil {
			slog.Warn("summary analysis failed", "review_id", reviewID, "error", err)
			summary = models.FallbackSummary
			return nil
		}
		summary = v
		return nil
	})
	g.Go(func() error {
		v, err := s.ai.Call(gctx, actionsPrompt(review.Text, review.Rating, tctx), tempActions)
		if err != nil {
			slog.Warn("actions analysis failed", "review_id", reviewID, "error", err)
			actions = models.FallbackActions
			return nil
		}
		actions = v
		return nil
	})
	g.Go(func() error {
		v, err := s.ai.Call(gctx, sentimentPrompt(review.Text), tempSentiment)
		if err != nil {
			slog.Warn("sentiment analysis failed", "review_id", reviewID, "error", err)
			sentiment = models.SentimentUnknown
			return nil
		}
		sentiment = normalizeSentiment(v)
		return nil
	})
	g.Go(func() error {
		v, err := s.ai.Call(gctx, categoryPrompt(review.Text, tctx), tempCategory)
		if err != nil {
			slog.Warn("category analysis failed", "review_id", reviewID, "error", err)
			category = models.FallbackCategory
			return nil
		}
		category = normalizeCategory(v)
		return nil
	})
	_ = g.Wait()

	enrichment := models.Enrichment{
		Summary:     summary,
		ActionItems: actions,
		Sentiment:   sentiment,
		Category:    category,
		ProcessedAt: time.Now().UTC(),
	}
	if err := s.store.MarkReviewProcessed(ctx, reviewID, enrichment); err != nil {
		if cerr := s.cache.SetEnrichStatus(ctx, reviewID, cache.EnrichFailed, statusTTL); cerr != nil {
			slog.Warn("failed to set enrichment status", "review_id", reviewID, "error", cerr)
		}
		return fmt.Errorf("persisting enrichment: %w", err)
	}
	if err := s.cache.SetEnrichStatus(ctx, reviewID, cache.EnrichCompleted, statusTTL); err != nil {
		slog.Warn("failed to set enrichment status", "review_id", reviewID, "error", err)
	}

	slog.Info("review enriched", "review_id", reviewID, "sentiment", sentiment, "category", category)
	return nil
}

// EnrichReviewAsync triggers a background enrichment pass for one review,
// for manual retriggers from the dashboard.
func (s *Service) EnrichReviewAsync(companyID, reviewID uuid.UUID, tctx models.TenantContext) {
	go s.enrichAsync(companyID, reviewID, tctx)
}

// EnrichPending drains up to batchSize unprocessed reviews for the company,
// oldest first, sequentially, with a pacing delay between reviews. Returns the
// number of reviews attempted.
func (s *Service) EnrichPending(ctx context.Context, companyID uuid.UUID, tctx models.TenantContext, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	reviews, err := s.store.ListUnprocessedReviews(ctx, companyID, batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing unprocessed reviews: %w", err)
	}

	attempted := 0
	for i, r := range reviews {
		if i > 0 && !s.sleep(ctx, s.pacing) {
			return attempted, ctx.Err()
		}
		attempted++
		if err := s.EnrichReview(ctx, companyID, r.ID, tctx); err != nil {
			slog.Error("batch enrichment failed", "review_id", r.ID, "error", err)
		}
	}
	return attempted, nil
}

// EnrichPendingAsync runs a batch pass in the background, for callers that
// only need to trigger the drain.
func (s *Service) EnrichPendingAsync(companyID uuid.UUID, tctx models.TenantContext, batchSize int) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic during batch enrichment", "company_id", companyID, "panic", r)
			}
		}()
		n, err := s.EnrichPending(context.Background(), companyID, tctx, batchSize)
		if err != nil {
			slog.Error("batch enrichment pass failed", "company_id", companyID, "error", err)
			return
		}
		slog.Info("batch enrichment pass finished", "company_id", companyID, "attempted", n)
	}()
}

// List returns a filtered page of the company's reviews with the total count.
func (s *Service) List(ctx context.Context, filter store.ReviewFilter) ([]*models.Review, int, error) {
	return s.store.ListReviews(ctx, filter)
}

// Analytics aggregates sentiment, category, product and processing counts.
func (s *Service) Analytics(ctx context.Context, companyID uuid.UUID) (*models.Analytics, error) {
	return s.store.ReviewAnalytics(ctx, companyID)
}

// EnrichStatus reports the advisory pipeline status for one review.
func (s *Service) EnrichStatus(ctx context.Context, reviewID uuid.UUID) (string, bool, error) {
	return s.cache.GetEnrichStatus(ctx, reviewID)
}

func trimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
