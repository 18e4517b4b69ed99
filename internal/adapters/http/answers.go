package httpadapter

import (
	"net/http"
	"strings"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

func (rt *Router) answerQuestion(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Query        string   `json:"query"`
		Category     *string  `json:"category"`
		ScopedSearch bool     `json:"scoped_search"`
		S3URLs       []string `json:"s3_urls"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "A query is required.")
		return
	}

	result, err := rt.services.Answerer.Answer(r.Context(), ports.AnswerRequest{
		Query:        req.Query,
		Category:     deref(req.Category),
		ScopedSearch: req.ScopedSearch,
		S3URLs:       req.S3URLs,
	})
	if err != nil {
		writeDomainError(w, r, "answer", err)
		return
	}

	answered, failed := countAnswers(result.Results)
	rt.recorder.RecordAnswers("answer", answered, failed)
	if result.Results == nil {
		result.Results = []domain.DocumentAnswer{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) chatWithDocument(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Query       string `json:"query"`
		ViewableURL string `json:"viewable_url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	docURL := strings.TrimSpace(req.ViewableURL)
	if query == "" || docURL == "" {
		writeError(w, http.StatusBadRequest, "Both 'query' and 'viewable_url' are required.")
		return
	}

	answer, err := rt.services.Answerer.ChatWithDocument(r.Context(), query, docURL)
	if err != nil {
		rt.recorder.RecordAnswers("chat_with_document", 0, 1)
		writeDomainError(w, r, "chat with document", err)
		return
	}
	rt.recorder.RecordAnswers("chat_with_document", 1, 0)
	writeJSON(w, http.StatusOK, map[string]string{
		"answer":       strings.TrimSpace(answer),
		"query":        query,
		"viewable_url": docURL,
	})
}

func (rt *Router) summarizeDocuments(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		S3URLs []string `json:"s3_urls"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.S3URLs) == 0 {
		writeError(w, http.StatusBadRequest, "No S3 URLs provided")
		return
	}

	result, err := rt.services.Answerer.Summarize(r.Context(), req.S3URLs)
	if err != nil {
		writeDomainError(w, r, "summarize", err)
		return
	}
	rt.recorder.RecordAnswers("summarize", result.DocumentsProcessed, len(req.S3URLs)-result.DocumentsProcessed)
	if result.DocumentNames == nil {
		result.DocumentNames = []string{}
	}
	writeJSON(w, http.StatusOK, result)
}

func countAnswers(results []domain.DocumentAnswer) (answered, failed int) {
	for _, res := range results {
		if res.Failed {
			failed++
			continue
		}
		answered++
	}
	return answered, failed
}
