package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Nachikxt91/feedback-backend/internal/store"
	"github.com/Nachikxt91/feedback-backend/pkg/models"
)

const (
	// minReviewLen rejects junk rows; shorter texts carry no signal.
	minReviewLen = 10

	// maxReviewLen caps extracted paragraphs.
	maxReviewLen = 2000

	maxReportedErrors = 20

	exportPageSize = 100
)

// Service bulk-loads reviews from uploaded files and exports them back out.
// Imported reviews are stored unprocessed; enrichment is triggered by the
// caller afterwards.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Report summarizes one import run.
type Report struct {
	Total   int      `json:"total_reviews"`
	Queued  int      `json:"queued"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
	Message string   `json:"message"`
}

var textColumns = []string{"review", "review_text", "feedback"}
var ratingColumns = []string{"rating", "stars"}
var productColumns = []string{"product", "product_name"}

// ImportCSV parses a CSV upload and inserts one unprocessed review per valid
// row. Header names are matched case-insensitively against the accepted
// aliases. Rows with fewer than 10 characters of review text are rejected
// with their row number; out-of-range or unparsable ratings are dropped, not
// rejected.
func (s *Service) ImportCSV(ctx context.Context, companyID uuid.UUID, r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Report{Errors: []string{}, Message: "No reviews found in file"}, nil
	}
	if err != nil {
		return &Report{Errors: []string{fmt.Sprintf("invalid CSV: %v", err)}, Message: "No reviews found in file"}, nil
	}

	textIdx := columnIndex(header, textColumns)
	ratingIdx := columnIndex(header, ratingColumns)
	productIdx := columnIndex(header, productColumns)
	if textIdx < 0 {
		return &Report{
			Errors:  []string{"no review column found (expected one of: review, review_text, feedback)"},
			Message: "No reviews found in file",
		}, nil
	}

	report := &Report{Errors: []string{}}
	var reviews []*models.Review
	rowNum := 1 // header is row 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			report.Total++
			report.addError(fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		report.Total++

		text := strings.TrimSpace(field(record, textIdx))
		if len([]rune(text)) < minReviewLen {
			report.addError(fmt.Sprintf("Row %d: review too short or missing", rowNum))
			continue
		}

		reviews = append(reviews, &models.Review{
			ID:        uuid.New(),
			CompanyID: companyID,
			Text:      text,
			Rating:    parseRating(field(record, ratingIdx)),
			Product:   optional(field(record, productIdx)),
			Source:    models.SourceCSV,
			CreatedAt: time.Now().UTC(),
		})
	}

	if len(reviews) > 0 {
		if err := s.store.CreateReviews(ctx, reviews); err != nil {
			return nil, fmt.Errorf("inserting imported reviews: %w", err)
		}
		report.Queued = len(reviews)
	}
	report.Failed = report.Total - report.Queued
	if report.Total > 0 {
		report.Message = fmt.Sprintf("Imported %d/%d reviews", report.Queued, report.Total)
	} else {
		report.Message = "No reviews found in file"
	}

	slog.Info("csv import finished", "company_id", companyID, "queued", report.Queued, "failed", report.Failed)
	return report, nil
}

// paragraphSplit breaks extracted document text on blank lines or a newline
// followed by a numbered item like "3." or "2)".
var paragraphSplit = regexp.MustCompile(`\n{2,}|\n(\d+[.)]\s)`)

// ImportText splits pre-extracted document text (e.g. from a PDF) into
// paragraphs and stores each paragraph of at least 10 characters as its own
// unprocessed review, capped at 2000 characters.
func (s *Service) ImportText(ctx context.Context, companyID uuid.UUID, text string) (*Report, error) {
	if strings.TrimSpace(text) == "" {
		return &Report{
			Errors:  []string{"No text could be extracted from the document"},
			Message: "Document appears to be empty or image-only",
		}, nil
	}

	var reviews []*models.Review
	for _, part := range splitParagraphs(text) {
		part = strings.TrimSpace(part)
		if len([]rune(part)) < minReviewLen {
			continue
		}
		if r := []rune(part); len(r) > maxReviewLen {
			part = string(r[:maxReviewLen])
		}
		reviews = append(reviews, &models.Review{
			ID:        uuid.New(),
			CompanyID: companyID,
			Text:      part,
			Source:    models.SourcePDF,
			CreatedAt: time.Now().UTC(),
		})
	}

	report := &Report{Total: len(reviews), Errors: []string{}}
	if len(reviews) > 0 {
		if err := s.store.CreateReviews(ctx, reviews); err != nil {
			return nil, fmt.Errorf("inserting imported reviews: %w", err)
		}
		report.Queued = len(reviews)
	}
	report.Message = fmt.Sprintf("Extracted and imported %d reviews", report.Queued)

	slog.Info("text import finished", "company_id", companyID, "queued", report.Queued)
	return report, nil
}

// splitParagraphs keeps numbered-item prefixes attached to the paragraph that
// follows them. regexp.Split would swallow the captured prefix, so the split
// walks the matches manually.
func splitParagraphs(text string) []string {
	var parts []string
	last := 0
	for _, m := range paragraphSplit.FindAllStringSubmatchIndex(text, -1) {
		parts = append(parts, text[last:m[0]])
		if m[2] >= 0 {
			// keep "3. " with the next paragraph
			last = m[2]
		} else {
			last = m[1]
		}
	}
	parts = append(parts, text[last:])
	return parts
}

// ExportCSV streams every review of the company as CSV.
func (s *Service) ExportCSV(ctx context.Context, companyID uuid.UUID, w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "text", "rating", "product", "source",
		"sentiment", "category", "summary", "action_items", "ai_reply",
		"processed", "created_at",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	err := s.eachReview(ctx, companyID, func(r *models.Review) error {
		rating := ""
		if r.Rating != nil {
			rating = strconv.Itoa(*r.Rating)
		}
		row := []string{
			r.ID.String(), r.Text, rating, deref(r.Product), r.Source,
			deref(r.Sentiment), deref(r.Category), deref(r.Summary), deref(r.ActionItems), deref(r.AIReply),
			strconv.FormatBool(r.Processed), r.CreatedAt.UTC().Format(time.RFC3339),
		}
		return cw.Write(row)
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// ExportJSON streams every review of the company as a JSON array.
func (s *Service) ExportJSON(ctx context.Context, companyID uuid.UUID, w io.Writer) error {
	all := []*models.Review{}
	err := s.eachReview(ctx, companyID, func(r *models.Review) error {
		all = append(all, r)
		return nil
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(all)
}

func (s *Service) eachReview(ctx context.Context, companyID uuid.UUID, fn func(*models.Review) error) error {
	page := 1
	for {
		reviews, total, err := s.store.ListReviews(ctx, store.ReviewFilter{
			CompanyID: companyID,
			Page:      page,
			Limit:     exportPageSize,
		})
		if err != nil {
			return fmt.Errorf("listing reviews for export: %w", err)
		}
		for _, r := range reviews {
			if err := fn(r); err != nil {
				return err
			}
		}
		if page*exportPageSize >= total || len(reviews) == 0 {
			return nil
		}
		page++
	}
}

func (r *Report) addError(msg string) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

func columnIndex(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		for _, name := range names {
			if h == name {
				return i
			}
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseRating(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	rating := int(f)
	if rating < 1 || rating > 5 {
		return nil
	}
	return &rating
}

func optional(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
