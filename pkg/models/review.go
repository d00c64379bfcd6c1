package models

import (
	"time"

	"github.com/google/uuid"
)

// Review source tags.
const (
	SourceWeb = "web"
	SourceCSV = "imported-csv"
	SourcePDF = "imported-pdf"
)

// Sentiment labels. The classifier is constrained to the first three;
// SentimentUnknown marks an adapter failure, never a model answer.
const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
	SentimentUnknown  = "Unknown"
)

// Enrichment fallbacks substituted when an individual analysis branch fails.
const (
	FallbackSummary  = "Error generating summary"
	FallbackActions  = "Error generating actions"
	FallbackCategory = "General"
)

// Review is a single piece of customer feedback owned by one company.
// The four enrichment fields stay nil until the background pass runs;
// after a successful pass each holds either a real value or its fallback.
type Review struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	CompanyID   uuid.UUID  `db:"company_id"   json:"company_id"`
	Text        string     `db:"review"       json:"review"`
	Rating      *int       `db:"rating"       json:"rating,omitempty"`
	Product     *string    `db:"product"      json:"product,omitempty"`
	Source      string     `db:"source"       json:"source"`
	AIReply     *string    `db:"ai_reply"     json:"ai_reply,omitempty"`
	Summary     *string    `db:"ai_summary"   json:"ai_summary,omitempty"`
	ActionItems *string    `db:"ai_actions"   json:"ai_actions,omitempty"`
	Sentiment   *string    `db:"sentiment"    json:"sentiment,omitempty"`
	Category    *string    `db:"category"     json:"category,omitempty"`
	Processed   bool       `db:"processed"    json:"processed"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}

// Enrichment is the merged outcome of one orchestrator pass, persisted in a
// single atomic update together with the processed flag.
type Enrichment struct {
	Summary     string
	ActionItems string
	Sentiment   string
	Category    string
	ProcessedAt time.Time
}

// Analytics is a tenant-scoped aggregate over all of a company's reviews.
type Analytics struct {
	TotalFeedback        int            `json:"total_feedback"`
	AverageRating        *float64       `json:"average_rating,omitempty"`
	RatingDistribution   map[string]int `json:"rating_distribution"`
	SentimentBreakdown   map[string]int `json:"sentiment_breakdown"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	ProductDistribution  map[string]int `json:"product_distribution"`
	LatestSubmission     *time.Time     `json:"latest_submission,omitempty"`
	ProcessedCount       int            `json:"processed_count"`
	PendingCount         int            `json:"pending_count"`
}
