package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/contract-intelligence/internal/config"
	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func multipartUpload(t *testing.T, filename, category string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("contract_file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(data)
	}
	if category != "" {
		_ = mw.WriteField("contract_category", category)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadStoresContract(t *testing.T) {
	svc := newTestServices()
	rec := &recorderFake{}
	rt := newTestRouter(t, config.Config{MaxUploadBytes: 1 << 20}, svc)
	rt.recorder = rec
	handler := rt.Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartUpload(t, "loan.pdf", "loan_agreement", []byte("%PDF-1.4 body")))

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	if body["qdrant_id"] != "id-1" {
		t.Fatalf("unexpected qdrant_id %v", body["qdrant_id"])
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, `"loan_agreements"`) {
		t.Fatalf("unexpected message %q", msg)
	}
	if svc.ingestor.got.Filename != "loan.pdf" || svc.ingestor.got.Category != "loan_agreement" {
		t.Fatalf("unexpected upload request %+v", svc.ingestor.got)
	}
	if len(rec.ingests) != 1 || rec.ingests[0] != "loan_agreement" {
		t.Fatalf("expected one recorded ingest, got %v", rec.ingests)
	}
}

func TestUploadRejectsMissingFileAndBadCategory(t *testing.T) {
	handler := newTestHandler(t, config.Config{MaxUploadBytes: 1 << 20})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartUpload(t, "", "nda", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("missing file expected 400, got %d", res.Code)
	}
	if got := decodeBody(t, res)["error"]; got != "No contract file was provided." {
		t.Fatalf("unexpected error %v", got)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, multipartUpload(t, "a.pdf", "lease", []byte("x")))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("bad category expected 400, got %d", res.Code)
	}
	if got, _ := decodeBody(t, res)["error"].(string); !strings.Contains(got, "loan_agreement, nda, employee_contract") {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	handler := newTestHandler(t, config.Config{MaxUploadBytes: 64})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartUpload(t, "big.pdf", "nda", bytes.Repeat([]byte("a"), 4096)))
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	handler := newTestHandler(t, config.Config{})

	res := doJSON(t, handler, http.MethodPost, "/search/", map[string]any{"query": "  "})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if got := decodeBody(t, res)["error"]; got != "A search query is required." {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestSearchPassesRequestAndReturnsResults(t *testing.T) {
	svc := newTestServices()
	svc.searcher.result = domain.SearchResult{
		SearchType: "hybrid_semantic_search",
		Query:      "nda with acme",
		SearchPlan: domain.FallbackPlan("nda with acme"),
		Results:    []domain.SearchHit{{ID: "p1", Score: 0.8123, Data: map[string]any{"category": "nda"}}},
	}
	handler := newTestRouter(t, config.Config{}, svc).Handler()

	res := doJSON(t, handler, http.MethodPost, "/search/", map[string]any{"query": "nda with acme", "category": "nda", "limit": 5})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if svc.searcher.got.Category != "nda" || svc.searcher.got.Limit != 5 {
		t.Fatalf("unexpected search request %+v", svc.searcher.got)
	}
	body := decodeBody(t, res)
	if body["search_type"] != "hybrid_semantic_search" {
		t.Fatalf("unexpected search_type %v", body["search_type"])
	}
	if results, _ := body["results"].([]any); len(results) != 1 {
		t.Fatalf("expected one result, got %v", body["results"])
	}
}

func TestSearchMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.InvalidInput("search", "bad category"), http.StatusBadRequest},
		{"not found", domain.WrapError(domain.ErrNotFound, "search", errors.New("gone")), http.StatusNotFound},
		{"temporary", domain.WrapError(domain.ErrTemporary, "search", errors.New("qdrant down")), http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestServices()
			svc.searcher.err = tc.err
			handler := newTestRouter(t, config.Config{}, svc).Handler()

			res := doJSON(t, handler, http.MethodPost, "/search/", map[string]any{"query": "q"})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
			if decodeBody(t, res)["error"] == nil {
				t.Fatalf("expected error body")
			}
		})
	}
}

func TestListByCategory(t *testing.T) {
	svc := newTestServices()
	svc.lister.byCat = []domain.ContractSummary{{QdrantID: "n1", Category: domain.CategoryNDA, Collection: "ndas", Name: "Acme", Date: "N/A"}}
	handler := newTestRouter(t, config.Config{}, svc).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/contracts/nda/", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["category"] != "nda" {
		t.Fatalf("unexpected category %v", body["category"])
	}
	if results, _ := body["results"].([]any); len(results) != 1 {
		t.Fatalf("expected one result, got %v", body["results"])
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/contracts/lease/", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid category, got %d", res.Code)
	}
	if got := decodeBody(t, res)["error"]; got != "Invalid category." {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestListAllUsesDedicatedRoute(t *testing.T) {
	svc := newTestServices()
	handler := newTestRouter(t, config.Config{}, svc).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/contracts/all/", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if svc.lister.category != "" {
		t.Fatalf("listing all must not hit the category route, got %q", svc.lister.category)
	}
	if results, ok := decodeBody(t, res)["results"].([]any); !ok || len(results) != 0 {
		t.Fatalf("expected empty results array")
	}
}

func TestExportReturnsWorkbook(t *testing.T) {
	svc := newTestServices()
	svc.lister.all = []domain.ContractSummary{{QdrantID: "a", Category: domain.CategoryNDA, Collection: "ndas", Name: "Acme", Date: "2025-01-01"}}
	handler := newTestRouter(t, config.Config{}, svc).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/contracts/export.xlsx", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(res.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected zip container body")
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/contracts/export.xlsx?category=nda", nil))
	if res.Code != http.StatusOK || svc.lister.category != "nda" {
		t.Fatalf("category export expected 200 via category listing, got %d (%q)", res.Code, svc.lister.category)
	}
	if !strings.Contains(res.Header().Get("Content-Disposition"), "contracts-nda.xlsx") {
		t.Fatalf("unexpected disposition %q", res.Header().Get("Content-Disposition"))
	}
}

func TestAnswerRequiresQueryAndCountsOutcomes(t *testing.T) {
	svc := newTestServices()
	svc.answerer.result = domain.AnswerResult{Results: []domain.DocumentAnswer{
		{ID: "a", Answer: "yes"},
		{ID: "b", Answer: "Error: failed", Failed: true},
	}}
	rec := &recorderFake{}
	rt := newTestRouter(t, config.Config{}, svc)
	rt.recorder = rec
	handler := rt.Handler()

	res := doJSON(t, handler, http.MethodPost, "/answer/", map[string]any{})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}

	res = doJSON(t, handler, http.MethodPost, "/answer/", map[string]any{
		"query":         "what is the rate?",
		"scoped_search": true,
		"s3_urls":       []string{"s3://contracts/a.pdf"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !svc.answerer.got.ScopedSearch || len(svc.answerer.got.S3URLs) != 1 {
		t.Fatalf("unexpected answer request %+v", svc.answerer.got)
	}
	if rec.answered != 1 || rec.failed != 1 {
		t.Fatalf("expected 1 answered and 1 failed, got %d/%d", rec.answered, rec.failed)
	}
}

func TestChatWithDocument(t *testing.T) {
	svc := newTestServices()
	svc.answerer.chat = "  The term is 12 months. "
	handler := newTestRouter(t, config.Config{}, svc).Handler()

	res := doJSON(t, handler, http.MethodPost, "/chat-with-document/", map[string]any{"query": "term?"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without viewable_url, got %d", res.Code)
	}

	res = doJSON(t, handler, http.MethodPost, "/chat-with-document/", map[string]any{
		"query":        "term?",
		"viewable_url": "https://bucket.s3.amazonaws.com/ndas/a.pdf?X-Amz-Signature=x",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["answer"] != "The term is 12 months." {
		t.Fatalf("unexpected answer %q", body["answer"])
	}
	if svc.answerer.chatURL == "" {
		t.Fatalf("document url not forwarded")
	}
}

func TestSummarizeRequiresURLs(t *testing.T) {
	svc := newTestServices()
	svc.answerer.summary = domain.SummaryResult{Summary: "two contracts", DocumentsProcessed: 2, DocumentNames: []string{"a", "b"}}
	handler := newTestRouter(t, config.Config{}, svc).Handler()

	res := doJSON(t, handler, http.MethodPost, "/summarize-multiple/", map[string]any{"s3_urls": []string{}})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}

	res = doJSON(t, handler, http.MethodPost, "/summarize-multiple/", map[string]any{"s3_urls": []string{"s3://b/a.pdf", "s3://b/b.pdf"}})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if decodeBody(t, res)["documents_processed"] != float64(2) {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
}

func TestSaveChatHistory(t *testing.T) {
	svc := newTestServices()
	handler := newTestRouter(t, config.Config{}, svc).Handler()

	res := doJSON(t, handler, http.MethodPost, "/chat-history/save/", map[string]any{"query": "q"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if got := decodeBody(t, res)["error"]; got != "Both 'query' and 'response' are required." {
		t.Fatalf("unexpected error %v", got)
	}

	res = doJSON(t, handler, http.MethodPost, "/chat-history/save/", map[string]any{
		"query":      "q",
		"response":   "r",
		"doc_s3_url": "s3://contracts/ndas/a.pdf",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}
	if decodeBody(t, res)["message"] != "Chat interaction saved." {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
	if svc.history.savedDoc == nil || svc.history.savedDoc.DocURL != "s3://contracts/ndas/a.pdf" {
		t.Fatalf("expected document chat to be attached, got %+v", svc.history.savedDoc)
	}
}

func TestChatHistoryEndpoints(t *testing.T) {
	svc := newTestServices()
	svc.history.entries = []domain.HistoryEntry{{ID: "h2"}, {ID: "h1"}}
	handler := newTestRouter(t, config.Config{}, svc).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/chat-history/?limit=2", nil))
	if res.Code != http.StatusOK || svc.history.limit != 2 {
		t.Fatalf("expected 200 with limit 2, got %d / %d", res.Code, svc.history.limit)
	}
	if history, _ := decodeBody(t, res)["history"].([]any); len(history) != 2 {
		t.Fatalf("expected two entries, got %s", res.Body.String())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/chat-history/?limit=abc", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed limit, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/chat-history/document/?doc_name=lease", nil))
	if got, _ := decodeBody(t, res)["message"].(string); got != "No chats found for document 'lease'" {
		t.Fatalf("unexpected message %q", got)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/chat-history/document/", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without doc_name, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/chat-history/search/?q=rate", nil))
	if res.Code != http.StatusOK || svc.history.topK != defaultRecallTopK {
		t.Fatalf("expected default top_k, got %d / %d", res.Code, svc.history.topK)
	}
}

func TestAlertsAndSetup(t *testing.T) {
	svc := newTestServices()
	svc.alerts.report = domain.AlertsReport{Alerts: []domain.AlertEntry{{ID: "a", DaysLeft: 3, Type: domain.AlertKindLoanDue}}}
	rec := &recorderFake{}
	rt := newTestRouter(t, config.Config{}, svc)
	rt.recorder = rec
	handler := rt.Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/alerts-reminders/", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if reminders, ok := body["reminders"].([]any); !ok || len(reminders) != 0 {
		t.Fatalf("expected empty reminders array, got %v", body["reminders"])
	}
	if rec.alerts != 1 {
		t.Fatalf("expected alert gauge update, got %d", rec.alerts)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/setup-qdrant/", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, config.Config{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/search/", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
	if res.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected Allow header")
	}
}

func TestOpenAPIValidationRejectsMistypedInput(t *testing.T) {
	svc := newTestServices()
	handler := newTestRouter(t, config.Config{OpenAPIValidate: true}, svc).Handler()

	res := doJSON(t, handler, http.MethodPost, "/search/", map[string]any{"query": "q", "limit": "ten"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for string limit, got %d", res.Code)
	}
	if got, _ := decodeBody(t, res)["error"].(string); !strings.HasPrefix(got, "invalid request") {
		t.Fatalf("unexpected error %q", got)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/chat-history/search/?q=x&top_k=500", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for top_k above maximum, got %d", res.Code)
	}

	res = doJSON(t, handler, http.MethodPost, "/search/", map[string]any{"query": "q", "limit": 3})
	if res.Code != http.StatusOK {
		t.Fatalf("valid request expected 200, got %d: %s", res.Code, res.Body.String())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, multipartUpload(t, "a.pdf", "nda", []byte("x")))
	if res.Code != http.StatusCreated {
		t.Fatalf("multipart upload must bypass body validation, got %d: %s", res.Code, res.Body.String())
	}
}
