package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	mw "github.com/Nachikxt91/feedback-backend/internal/api/middleware"
	"github.com/Nachikxt91/feedback-backend/internal/api/response"
	"github.com/Nachikxt91/feedback-backend/internal/importer"
)

// Importer is the slice of the import service the upload handlers use.
type Importer interface {
	ImportCSV(ctx context.Context, companyID uuid.UUID, r io.Reader) (*importer.Report, error)
	ImportText(ctx context.Context, companyID uuid.UUID, text string) (*importer.Report, error)
	ExportCSV(ctx context.Context, companyID uuid.UUID, w io.Writer) error
	ExportJSON(ctx context.Context, companyID uuid.UUID, w io.Writer) error
}

// NewImportCSVHandler returns the handler for POST /api/v1/import/csv.
// Expects a multipart form with a "file" part. Queued rows are enriched in
// the background after the upload returns.
func NewImportCSVHandler(svc Importer, enricher Enricher, tenants TenantContextProvider, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, _, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Upload a CSV file in the 'file' form field", nil)
			return
		}
		defer file.Close()

		report, err := svc.ImportCSV(r.Context(), companyID, file)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Import failed", nil)
			return
		}

		if report.Queued > 0 {
			if tctx, terr := tenants.Context(r.Context(), companyID); terr == nil {
				enricher.EnrichPendingAsync(companyID, tctx, report.Queued)
			}
		}
		response.JSON(w, report)
	}
}

// NewImportTextHandler returns the handler for POST /api/v1/import/text.
// Accepts pre-extracted document text (PDF extraction happens client-side or
// in a separate tool) and splits it into reviews.
func NewImportTextHandler(svc Importer, enricher Enricher, tenants TenantContextProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		report, err := svc.ImportText(r.Context(), companyID, req.Text)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Import failed", nil)
			return
		}

		if report.Queued > 0 {
			if tctx, terr := tenants.Context(r.Context(), companyID); terr == nil {
				enricher.EnrichPendingAsync(companyID, tctx, report.Queued)
			}
		}
		response.JSON(w, report)
	}
}

// NewExportHandler returns the handler for GET /api/v1/export?format=csv|json.
func NewExportHandler(svc Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, ok := mw.GetCompanyID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing company", nil)
			return
		}

		format := r.URL.Query().Get("format")
		if format == "" {
			format = "csv"
		}
		filename := fmt.Sprintf("feedback-%s.%s", time.Now().UTC().Format("2006-01-02"), format)

		switch format {
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			if err := svc.ExportCSV(r.Context(), companyID, w); err != nil {
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Export failed", nil)
			}
		case "json":
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			if err := svc.ExportJSON(r.Context(), companyID, w); err != nil {
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Export failed", nil)
			}
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"format must be csv or json", nil)
		}
	}
}
