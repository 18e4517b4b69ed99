package httpadapter

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/config"
	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

type ingestorFake struct {
	got ports.UploadRequest
	err error
}

func (f *ingestorFake) Upload(_ context.Context, req ports.UploadRequest) (ports.UploadResult, error) {
	f.got = req
	if f.err != nil {
		return ports.UploadResult{}, f.err
	}
	return ports.UploadResult{ID: "id-1", Payload: map[string]any{"category": req.Category}}, nil
}

type searcherFake struct {
	got    ports.SearchRequest
	result domain.SearchResult
	err    error
}

func (f *searcherFake) Search(_ context.Context, req ports.SearchRequest) (domain.SearchResult, error) {
	f.got = req
	return f.result, f.err
}

type answererFake struct {
	got       ports.AnswerRequest
	result    domain.AnswerResult
	chat      string
	summary   domain.SummaryResult
	err       error
	chatQuery string
	chatURL   string
}

func (f *answererFake) Answer(_ context.Context, req ports.AnswerRequest) (domain.AnswerResult, error) {
	f.got = req
	return f.result, f.err
}

func (f *answererFake) ChatWithDocument(_ context.Context, query, docURL string) (string, error) {
	f.chatQuery, f.chatURL = query, docURL
	return f.chat, f.err
}

func (f *answererFake) Summarize(_ context.Context, uris []string) (domain.SummaryResult, error) {
	return f.summary, f.err
}

type listerFake struct {
	all      []domain.ContractSummary
	byCat    []domain.ContractSummary
	category string
	err      error
}

func (f *listerFake) ListAll(context.Context) ([]domain.ContractSummary, error) {
	return f.all, f.err
}

func (f *listerFake) ListByCategory(_ context.Context, category string) ([]domain.ContractSummary, error) {
	f.category = category
	if f.err != nil {
		return nil, f.err
	}
	if _, err := domain.ParseCategory(category); err != nil {
		return nil, err
	}
	return f.byCat, nil
}

type alertsFake struct {
	report domain.AlertsReport
	err    error
}

func (f *alertsFake) AlertsAndReminders(context.Context) (domain.AlertsReport, error) {
	return f.report, f.err
}

type historyFake struct {
	saved    []domain.HistoryEntry
	savedDoc *domain.DocChat
	entries  []domain.HistoryEntry
	limit    int
	chats    []domain.DocChatRecord
	recalled []domain.RecalledEntry
	topK     int
	err      error
}

func (f *historyFake) Save(_ context.Context, query, response string, doc *domain.DocChat) (domain.HistoryEntry, error) {
	if f.err != nil {
		return domain.HistoryEntry{}, f.err
	}
	entry := domain.HistoryEntry{ID: "h-1", Query: query, Response: response}
	f.saved = append(f.saved, entry)
	f.savedDoc = doc
	return entry, nil
}

func (f *historyFake) Conversation(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	f.limit = limit
	return f.entries, f.err
}

func (f *historyFake) DocumentChats(context.Context, string) ([]domain.DocChatRecord, error) {
	return f.chats, f.err
}

func (f *historyFake) Recall(_ context.Context, _ string, topK int) ([]domain.RecalledEntry, error) {
	f.topK = topK
	return f.recalled, f.err
}

type schemaFake struct {
	err error
}

func (f schemaFake) Setup(context.Context) (domain.SetupReport, error) {
	if f.err != nil {
		return domain.SetupReport{}, f.err
	}
	return domain.SetupReport{Collections: domain.AllCollections()}, nil
}

type recorderFake struct {
	searches int
	ingests  []string
	answered int
	failed   int
	alerts   int
}

func (r *recorderFake) RecordSearch(string, int, time.Duration) { r.searches++ }
func (r *recorderFake) RecordAnswers(_ string, answered, failed int) {
	r.answered += answered
	r.failed += failed
}
func (r *recorderFake) RecordIngest(category string, _ time.Duration, _ error) {
	r.ingests = append(r.ingests, category)
}
func (r *recorderFake) RecordAlerts(alerts, _ int) { r.alerts = alerts }

type testServices struct {
	ingestor *ingestorFake
	searcher *searcherFake
	answerer *answererFake
	lister   *listerFake
	alerts   *alertsFake
	history  *historyFake
	schema   schemaFake
}

func newTestServices() *testServices {
	return &testServices{
		ingestor: &ingestorFake{},
		searcher: &searcherFake{result: domain.SearchResult{SearchType: "hybrid_semantic_search"}},
		answerer: &answererFake{},
		lister:   &listerFake{},
		alerts:   &alertsFake{},
		history:  &historyFake{},
	}
}

func (s *testServices) ports() Services {
	return Services{
		Ingestor: s.ingestor,
		Searcher: s.searcher,
		Answerer: s.answerer,
		Lister:   s.lister,
		Alerts:   s.alerts,
		History:  s.history,
		Schema:   s.schema,
	}
}

func newTestRouter(t *testing.T, cfg config.Config, svc *testServices) *Router {
	t.Helper()
	rt, err := NewRouter(cfg, svc.ports(), nil)
	if err != nil {
		t.Fatalf("NewRouter() error: %v", err)
	}
	return rt
}

func newTestHandler(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	return newTestRouter(t, cfg, newTestServices()).Handler()
}
