package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func EnrichStatusKey(reviewID uuid.UUID) string {
	return fmt.Sprintf("enrich:%s", reviewID)
}

func InsightKey(companyID uuid.UUID) string {
	return fmt.Sprintf("insight:%s", companyID)
}

func RateLimitKey(subject string) string {
	return fmt.Sprintf("ratelimit:%s", subject)
}
