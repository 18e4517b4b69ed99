package httpadapter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/export/xlsx"
)

const (
	multipartMemoryBytes = 8 << 20
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var validCategoriesMessage = "A valid contract_category must be provided. Options are: " + joinCategories()

func joinCategories() string {
	names := make([]string, 0, 3)
	for _, c := range domain.AllCategories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func (rt *Router) uploadContract(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("contract file exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "No contract file was provided.")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("contract_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No contract file was provided.")
		return
	}
	defer file.Close()

	category, err := domain.ParseCategory(r.FormValue("contract_category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, validCategoriesMessage)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read contract file")
		return
	}

	start := time.Now()
	result, err := rt.services.Ingestor.Upload(r.Context(), ports.UploadRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Category:    string(category),
	})
	rt.recorder.RecordIngest(string(category), time.Since(start), err)
	if err != nil {
		writeDomainError(w, r, "upload", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   fmt.Sprintf("Contract processed and saved to %q collection!", category.Collection()),
		"qdrant_id": result.ID,
		"data":      result.Payload,
	})
}

func (rt *Router) searchContracts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Query    string  `json:"query"`
		Category *string `json:"category"`
		Limit    int     `json:"limit"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "A search query is required.")
		return
	}

	start := time.Now()
	result, err := rt.services.Searcher.Search(r.Context(), ports.SearchRequest{
		Query:    req.Query,
		Category: deref(req.Category),
		Limit:    req.Limit,
	})
	if err != nil {
		writeDomainError(w, r, "search", err)
		return
	}
	rt.recorder.RecordSearch(result.SearchType, len(result.Results), time.Since(start))
	if result.Results == nil {
		result.Results = []domain.SearchHit{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listAllContracts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	items, err := rt.services.Lister.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, r, "list contracts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": nonNilSummaries(items)})
}

func (rt *Router) listContractsByCategory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	category := r.PathValue("category")
	items, err := rt.services.Lister.ListByCategory(r.Context(), category)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Invalid category.")
			return
		}
		writeDomainError(w, r, "list contracts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"results":  nonNilSummaries(items),
	})
}

func (rt *Router) exportContracts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	var category string
	if err := runtime.BindQueryParameter("form", true, false, "category", r.URL.Query(), &category); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		items []domain.ContractSummary
		err   error
	)
	filename := "contracts.xlsx"
	if category != "" {
		items, err = rt.services.Lister.ListByCategory(r.Context(), category)
		filename = "contracts-" + category + ".xlsx"
	} else {
		items, err = rt.services.Lister.ListAll(r.Context())
	}
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Invalid category.")
			return
		}
		writeDomainError(w, r, "export contracts", err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteListing(&buf, items); err != nil {
		writeDomainError(w, r, "export contracts", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) alertsAndReminders(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	report, err := rt.services.Alerts.AlertsAndReminders(r.Context())
	if err != nil {
		writeDomainError(w, r, "alerts", err)
		return
	}
	if report.Alerts == nil {
		report.Alerts = []domain.AlertEntry{}
	}
	if report.Reminders == nil {
		report.Reminders = []domain.AlertEntry{}
	}
	rt.recorder.RecordAlerts(len(report.Alerts), len(report.Reminders))
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) setupSchema(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	report, err := rt.services.Schema.Setup(r.Context())
	if err != nil {
		writeDomainError(w, r, "setup schema", fmt.Errorf("failed to set up Qdrant: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Qdrant setup completed successfully.",
		"details": report,
	})
}

func nonNilSummaries(items []domain.ContractSummary) []domain.ContractSummary {
	if items == nil {
		return []domain.ContractSummary{}
	}
	return items
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
