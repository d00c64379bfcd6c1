package feedback

import (
	"strings"
	"unicode"

	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

const maxCategoryLen = 50

// normalizeSentiment coerces a model answer onto the three-value taxonomy.
// Anything that does not match after cleanup is treated as Neutral.
func normalizeSentiment(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSpace(s)
	s = titleWord(s)
	switch s {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral:
		return s
	}
	return models.SentimentNeutral
}

// normalizeCategory strips wrapping quotes and caps the label length. Models
// occasionally echo the label in quotes or pad it with prose.
func normalizeCategory(raw string) string {
	c := strings.TrimSpace(raw)
	c = strings.Trim(c, `"'`)
	c = strings.TrimSpace(c)
	if c == "" {
		return models.FallbackCategory
	}
	return truncateRunes(c, maxCategoryLen)
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
