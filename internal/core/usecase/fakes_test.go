package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

type oracleFake struct {
	mu      sync.Mutex
	reply   string
	replyFn func(system, user string) (string, error)
	err     error
	calls   int
	lastSys string
	lastUsr string
}

func (f *oracleFake) Complete(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSys = system
	f.lastUsr = user
	if f.replyFn != nil {
		return f.replyFn(system, user)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type embedderFake struct {
	mu      sync.Mutex
	vector  []float32
	err     error
	queries []string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for range texts {
		out = append(out, f.vector)
	}
	return out, f.err
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type searchCall struct {
	collection string
	filter     domain.PayloadFilter
	limit      int
	threshold  float64
}

type storeFake struct {
	mu          sync.Mutex
	records     map[string][]domain.ContractRecord
	hits        map[string][]domain.ScoredContract
	searchErr   map[string]error
	missing     map[string]bool
	scrollErr   error
	searches    []searchCall
	upserts     []string
	lastPayload map[string]any
	lastVector  []float32
}

func newStoreFake() *storeFake {
	return &storeFake{
		records:   map[string][]domain.ContractRecord{},
		hits:      map[string][]domain.ScoredContract{},
		searchErr: map[string]error{},
		missing:   map[string]bool{},
	}
}

func (f *storeFake) EnsureCollection(context.Context, string) error { return nil }

func (f *storeFake) SetupSchema(context.Context) (domain.SetupReport, error) {
	return domain.SetupReport{Collections: domain.AllCollections()}, nil
}

func (f *storeFake) Upsert(_ context.Context, collection, id string, vector []float32, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, collection+"/"+id)
	f.lastPayload = payload
	f.lastVector = vector
	f.records[collection] = append(f.records[collection], domain.RecordFromPayload(id, collection, payload))
	return nil
}

func (f *storeFake) Search(_ context.Context, collection string, _ []float32, filter domain.PayloadFilter, limit int, threshold float64) ([]domain.ScoredContract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, searchCall{collection: collection, filter: filter, limit: limit, threshold: threshold})
	if err := f.searchErr[collection]; err != nil {
		return nil, err
	}
	return f.hits[collection], nil
}

func (f *storeFake) Scroll(_ context.Context, collection string) ([]domain.ContractRecord, error) {
	if f.scrollErr != nil {
		return nil, f.scrollErr
	}
	return f.records[collection], nil
}

func (f *storeFake) ScrollWithField(_ context.Context, collection, field string) ([]domain.ContractRecord, error) {
	if f.scrollErr != nil {
		return nil, f.scrollErr
	}
	var out []domain.ContractRecord
	for _, rec := range f.records[collection] {
		if domain.FieldValue(rec.Fields, field) != "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *storeFake) CollectionExists(_ context.Context, collection string) (bool, error) {
	return !f.missing[collection], nil
}

func (f *storeFake) searchedCollections() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.searches))
	for _, s := range f.searches {
		out = append(out, s.collection)
	}
	return out
}

type objectStorageFake struct {
	mu         sync.Mutex
	objects    map[string][]byte
	getErr     map[string]error
	presignErr error
	presigns   int
}

func newObjectStorageFake() *objectStorageFake {
	return &objectStorageFake{objects: map[string][]byte{}, getErr: map[string]error{}}
}

func (f *objectStorageFake) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uri := "s3://contracts/" + key
	f.objects[uri] = data
	return uri, nil
}

func (f *objectStorageFake) Get(_ context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[uri]; err != nil {
		return nil, err
	}
	data, ok := f.objects[uri]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *objectStorageFake) Presign(_ context.Context, uri string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presigns++
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://signed.example/" + strings.TrimPrefix(uri, "s3://"), nil
}

type textExtractorFake struct {
	err error
}

func (f textExtractorFake) ExtractText(_ context.Context, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(data), nil
}

type cacheFake struct {
	mu       sync.Mutex
	listings map[domain.CacheKey][]domain.ContractSummary
	alerts   map[domain.CacheKey]domain.AlertsReport
	hits     int
	misses   int
}

func newCacheFake() *cacheFake {
	return &cacheFake{
		listings: map[domain.CacheKey][]domain.ContractSummary{},
		alerts:   map[domain.CacheKey]domain.AlertsReport{},
	}
}

func (c *cacheFake) GetListing(key domain.CacheKey) ([]domain.ContractSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.listings[key]
	c.count(ok)
	return items, ok
}

func (c *cacheFake) SetListing(key domain.CacheKey, items []domain.ContractSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[key] = items
}

func (c *cacheFake) GetAlerts(key domain.CacheKey) (domain.AlertsReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.alerts[key]
	c.count(ok)
	return report, ok
}

func (c *cacheFake) SetAlerts(key domain.CacheKey, report domain.AlertsReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts[key] = report
}

func (c *cacheFake) Invalidate(keys ...domain.CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.listings, key)
		delete(c.alerts, key)
	}
}

func (c *cacheFake) count(hit bool) {
	if hit {
		c.hits++
		return
	}
	c.misses++
}

type historyLogFake struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	err     error
}

func (f *historyLogFake) Append(_ context.Context, entry domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *historyLogFake) ListByUser(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.HistoryEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type historyIndexFake struct {
	mu        sync.Mutex
	vectors   [][]float32
	indexErr  error
	searchErr error
	hits      []domain.RecalledEntry
}

func (f *historyIndexFake) IndexEntry(_ context.Context, _ domain.HistoryEntry, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexErr != nil {
		return f.indexErr
	}
	f.vectors = append(f.vectors, vector)
	return nil
}

func (f *historyIndexFake) SearchEntries(context.Context, string, []float32, int) ([]domain.RecalledEntry, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

type eventPublisherFake struct {
	events []domain.IngestionEvent
	err    error
}

func (f *eventPublisherFake) PublishContractIngested(_ context.Context, event domain.IngestionEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func strPtr(s string) *string { return &s }

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 15, 30, 0, 0, time.UTC)
	}
}
