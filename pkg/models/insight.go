package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductStats summarizes feedback for one product inside an insight report.
type ProductStats struct {
	Positive    int    `json:"positive"`
	Negative    int    `json:"negative"`
	KeyFeedback string `json:"key_feedback"`
}

// Insight is the cached per-company aggregate report derived from recent
// processed reviews. At most one live insight per company; regeneration
// overwrites it in place.
type Insight struct {
	CompanyID        uuid.UUID               `db:"company_id"        json:"company_id"`
	TopIssues        []string                `db:"top_issues"        json:"top_issues"`
	TopPraises       []string                `db:"top_praises"       json:"top_praises"`
	ProductBreakdown map[string]ProductStats `db:"product_breakdown" json:"product_breakdown"`
	PriorityActions  []string                `db:"priority_actions"  json:"priority_actions"`
	OverallSummary   string                  `db:"overall_summary"   json:"overall_summary"`
	ReviewCount      int                     `db:"review_count"      json:"review_count_analyzed"`
	GeneratedAt      time.Time               `db:"generated_at"      json:"generated_at"`
}
