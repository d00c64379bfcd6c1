package feedback

import (
	"fmt"
	"strings"

	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

// Per-analysis temperatures. Classification runs cold, the user-facing reply warm.
const (
	tempReply     = 0.7
	tempSummary   = 0.3
	tempActions   = 0.5
	tempSentiment = 0.1
	tempCategory  = 0.2
)

// companyBlock formats the tenant context for prompt injection. Every prompt
// embeds it so analyses are specific to the company's domain, never generic.
func companyBlock(tctx models.TenantContext) string {
	if tctx.Name == "" && tctx.Description == "" && tctx.Industry == "" && len(tctx.Products) == 0 {
		return ""
	}
	products := strings.Join(tctx.Products, ", ")
	if products == "" {
		products = "Not specified"
	}
	return fmt.Sprintf(`
=== COMPANY CONTEXT ===
Company: %s
Industry: %s
Description: %s
Products/Services: %s
=======================
`, orUnknown(tctx.Name), orUnknown(tctx.Industry), orNA(tctx.Description), products)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func ratingLine(rating *int) string {
	if rating == nil {
		return ""
	}
	return fmt.Sprintf("Rating: %d/5\n", *rating)
}

// userReplyPrompt asks for the warm, rating-aware reply shown to the reviewer.
func userReplyPrompt(review string, rating *int, tctx models.TenantContext) string {
	return fmt.Sprintf(`You are a professional customer service representative for a company.
%s
A customer wrote the following review:
%sReview: "%s"

Respond warmly and professionally in 2-3 sentences.
- If the review is positive: Thank them and encourage continued engagement
- If the review is mixed: Acknowledge feedback and show willingness to improve
- If the review is negative: Apologize and show commitment to addressing concerns
- Reference the company or its products/industry where appropriate

Response:`, companyBlock(tctx), ratingLine(rating), review)
}

// summaryPrompt asks for a one-sentence summary for the admin dashboard.
func summaryPrompt(review string, rating *int, tctx models.TenantContext) string {
	return fmt.Sprintf(`Summarize this customer feedback in ONE sentence.
%s
%sReview: %s

Summary:`, companyBlock(tctx), ratingLine(rating), review)
}

// actionsPrompt asks for concrete, company-specific recommendations.
func actionsPrompt(review string, rating *int, tctx models.TenantContext) string {
	return fmt.Sprintf(`Based on this customer feedback, suggest 2-3 specific, actionable steps the business should take.
%s
%sReview: %s

The actions MUST be specific to this company's industry and products.
Format as a numbered list. Be concrete — no generic advice.

Action Items:`, companyBlock(tctx), ratingLine(rating), review)
}

// sentimentPrompt constrains the classifier to a one-word answer.
func sentimentPrompt(review string) string {
	return fmt.Sprintf(`Analyze the sentiment of this review. Respond with ONLY one word: Positive, Negative, or Neutral.

Review: %s

Sentiment:`, review)
}

// categoryPrompt asks for a short category label fitting the company's domain.
func categoryPrompt(review string, tctx models.TenantContext) string {
	return fmt.Sprintf(`Categorize this customer review into ONE short category label (1-3 words).
%s
Review: "%s"

Examples of good categories: Pricing, Product Quality, Customer Support, Delivery, UX/Design, Performance, Safety, Feature Request, General Praise, General Complaint.
Choose a category that fits THIS company's industry.

Category:`, companyBlock(tctx), review)
}
