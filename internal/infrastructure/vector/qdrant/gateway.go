package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/resilience"
)

const (
	defaultScrollPage = 256
	defaultScrollMax  = 10000

	indexKeyword = "keyword"
	indexText    = "text"
)

// Gateway is the contract store over the per-category Qdrant collections.
type Gateway struct {
	transport
	vectorSize int
	scrollPage int
	scrollMax  int

	ensureMu sync.Mutex
	ensured  map[string]bool
}

func NewGateway(cfg Config, executor *resilience.Executor) *Gateway {
	page := cfg.ScrollPage
	if page <= 0 {
		page = defaultScrollPage
	}
	limit := cfg.ScrollMax
	if limit <= 0 {
		limit = defaultScrollMax
	}
	return &Gateway{
		transport:  newTransport(cfg, executor),
		vectorSize: cfg.VectorSize,
		scrollPage: page,
		scrollMax:  limit,
		ensured:    make(map[string]bool, len(domain.AllCollections())),
	}
}

func (g *Gateway) checkCollection(collection string) error {
	if !domain.IsContractCollection(collection) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCollection, collection)
	}
	return nil
}

func (g *Gateway) checkVector(vector []float32) error {
	if len(vector) != g.vectorSize {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, g.vectorSize, len(vector))
	}
	return nil
}

// EnsureCollection creates the collection with the configured dimension and cosine distance if it is missing.
func (g *Gateway) EnsureCollection(ctx context.Context, collection string) error {
	if err := g.checkCollection(collection); err != nil {
		return err
	}

	g.ensureMu.Lock()
	defer g.ensureMu.Unlock()
	if g.ensured[collection] {
		return nil
	}

	if err := createCollection(ctx, &g.transport, collection, g.vectorSize); err != nil {
		return err
	}
	g.ensured[collection] = true
	return nil
}

func createCollection(ctx context.Context, t *transport, collection string, size int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": "Cosine",
		},
	}
	return t.call(ctx, "create_collection", func(ctx context.Context) error {
		err := t.doJSON(ctx, "create_collection", http.MethodPut, collectionPath(collection), body, nil)
		if err == nil || statusCode(err) == http.StatusConflict || bodyContains(err, "already exists") {
			return nil
		}
		return err
	})
}

// SetupSchema creates every collection and its payload indexes. Dates and category are keyword-indexed,
// every other schema field gets a word-tokenized text index.
func (g *Gateway) SetupSchema(ctx context.Context) (domain.SetupReport, error) {
	report := domain.SetupReport{Indexes: make(map[string][]string)}
	for _, category := range domain.AllCategories() {
		collection := category.Collection()
		if err := g.EnsureCollection(ctx, collection); err != nil {
			return report, fmt.Errorf("ensure collection %s: %w", collection, err)
		}
		report.Collections = append(report.Collections, collection)

		for _, idx := range indexPlan(category) {
			if err := g.ensureIndex(ctx, collection, idx.field, idx.schema); err != nil {
				return report, fmt.Errorf("ensure index %s.%s: %w", collection, idx.field, err)
			}
			report.Indexes[collection] = append(report.Indexes[collection], idx.field+":"+idx.schema)
		}
	}
	return report, nil
}

type plannedIndex struct {
	field  string
	schema string
}

// indexPlan text-indexes every extracted field, dates included, since planner filters match them
// with match.text. Only the category tag is a keyword.
func indexPlan(category domain.Category) []plannedIndex {
	fields := domain.SchemaFields(category)
	out := make([]plannedIndex, 0, len(fields)+1)
	for _, field := range fields {
		out = append(out, plannedIndex{field: field, schema: indexText})
	}
	return append(out, plannedIndex{field: domain.PayloadCategory, schema: indexKeyword})
}

func indexSchema(kind string) any {
	if kind == indexText {
		return map[string]any{
			"type":          "text",
			"tokenizer":     "word",
			"min_token_len": 2,
			"max_token_len": 15,
			"lowercase":     true,
		}
	}
	return kind
}

// ensureIndex creates a payload index. An index that exists with different parameters is dropped and recreated.
func (g *Gateway) ensureIndex(ctx context.Context, collection, field, kind string) error {
	body := map[string]any{
		"field_name":   field,
		"field_schema": indexSchema(kind),
	}
	create := func(ctx context.Context) error {
		return g.doJSON(ctx, "create_index", http.MethodPut, collectionPath(collection, "/index?wait=true"), body, nil)
	}

	return g.call(ctx, "create_index", func(ctx context.Context) error {
		err := create(ctx)
		switch {
		case err == nil:
			return nil
		case bodyContains(err, "different parameters"):
			slog.Warn("qdrant_index_recreate", "collection", collection, "field", field, "schema", kind)
			if err := g.doJSON(ctx, "delete_index", http.MethodDelete, collectionPath(collection, "/index/", field, "?wait=true"), nil, nil); err != nil {
				return err
			}
			return create(ctx)
		case bodyContains(err, "already exists"):
			return nil
		default:
			return err
		}
	})
}

// Upsert writes one point. Collection and dimension are validated before any network call.
func (g *Gateway) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error {
	if err := g.checkCollection(collection); err != nil {
		return err
	}
	if err := g.checkVector(vector); err != nil {
		return err
	}
	if err := g.EnsureCollection(ctx, collection); err != nil {
		return err
	}

	body := map[string]any{
		"points": []map[string]any{{
			"id":      id,
			"vector":  vector,
			"payload": payload,
		}},
	}
	return g.call(ctx, "upsert", func(ctx context.Context) error {
		return g.doJSON(ctx, "upsert", http.MethodPut, collectionPath(collection, "/points?wait=true"), body, nil)
	})
}

type searchResponse struct {
	Result []scoredPoint `json:"result"`
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// Search returns hits scoring at least scoreThreshold. When nothing clears the threshold the unthresholded
// hits are returned instead. A missing collection yields no hits.
func (g *Gateway) Search(
	ctx context.Context,
	collection string,
	vector []float32,
	filter domain.PayloadFilter,
	limit int,
	scoreThreshold float64,
) ([]domain.ScoredContract, error) {
	if err := g.checkCollection(collection); err != nil {
		return nil, err
	}
	if err := g.checkVector(vector); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if !filter.Empty() {
		body["filter"] = buildFilter(filter)
	}

	var parsed searchResponse
	err := g.call(ctx, "search", func(ctx context.Context) error {
		return g.doJSON(ctx, "search", http.MethodPost, collectionPath(collection, "/points/search"), body, &parsed)
	})
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return []domain.ScoredContract{}, nil
		}
		return nil, err
	}

	all := make([]domain.ScoredContract, 0, len(parsed.Result))
	confident := make([]domain.ScoredContract, 0, len(parsed.Result))
	for _, p := range parsed.Result {
		hit := domain.ScoredContract{
			Record:     domain.RecordFromPayload(decodePointID(p.ID), collection, p.Payload),
			Collection: collection,
			Score:      p.Score,
		}
		all = append(all, hit)
		if p.Score >= scoreThreshold {
			confident = append(confident, hit)
		}
	}
	if len(confident) == 0 {
		return all, nil
	}
	return confident, nil
}

func buildFilter(filter domain.PayloadFilter) map[string]any {
	must := make([]map[string]any, 0, len(filter.Must))
	for _, cond := range filter.Must {
		match := map[string]any{"text": cond.Value}
		if cond.Mode == domain.MatchKeyword {
			match = map[string]any{"value": cond.Value}
		}
		must = append(must, map[string]any{"key": cond.Key, "match": match})
	}
	return map[string]any{"must": must}
}

// Scroll reads every record of the collection.
func (g *Gateway) Scroll(ctx context.Context, collection string) ([]domain.ContractRecord, error) {
	return g.scroll(ctx, collection, nil)
}

// ScrollWithField reads the records whose payload has a non-empty, non-null value for field.
func (g *Gateway) ScrollWithField(ctx context.Context, collection, field string) ([]domain.ContractRecord, error) {
	filter := map[string]any{
		"must_not": []map[string]any{
			{"is_empty": map[string]any{"key": field}},
			{"is_null": map[string]any{"key": field}},
		},
	}
	return g.scroll(ctx, collection, filter)
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      json.RawMessage `json:"id"`
			Payload map[string]any  `json:"payload"`
		} `json:"points"`
		NextPageOffset json.RawMessage `json:"next_page_offset"`
	} `json:"result"`
}

func (g *Gateway) scroll(ctx context.Context, collection string, filter map[string]any) ([]domain.ContractRecord, error) {
	if err := g.checkCollection(collection); err != nil {
		return nil, err
	}

	out := make([]domain.ContractRecord, 0)
	var offset json.RawMessage
	for len(out) < g.scrollMax {
		body := map[string]any{
			"limit":        g.scrollPage,
			"with_payload": true,
			"with_vector":  false,
		}
		if filter != nil {
			body["filter"] = filter
		}
		if offset != nil {
			body["offset"] = offset
		}

		var parsed scrollResponse
		err := g.call(ctx, "scroll", func(ctx context.Context) error {
			return g.doJSON(ctx, "scroll", http.MethodPost, collectionPath(collection, "/points/scroll"), body, &parsed)
		})
		if err != nil {
			if statusCode(err) == http.StatusNotFound {
				return out, nil
			}
			return nil, err
		}

		for _, p := range parsed.Result.Points {
			out = append(out, domain.RecordFromPayload(decodePointID(p.ID), collection, p.Payload))
		}

		next := parsed.Result.NextPageOffset
		if len(next) == 0 || string(next) == "null" || len(parsed.Result.Points) == 0 {
			break
		}
		offset = next
	}
	if len(out) > g.scrollMax {
		out = out[:g.scrollMax]
	}
	return out, nil
}

// CollectionExists reports whether the collection is present on the server.
func (g *Gateway) CollectionExists(ctx context.Context, collection string) (bool, error) {
	if err := g.checkCollection(collection); err != nil {
		return false, err
	}
	err := g.call(ctx, "get_collection", func(ctx context.Context) error {
		return g.doJSON(ctx, "get_collection", http.MethodGet, collectionPath(collection), nil, nil)
	})
	if err == nil {
		return true, nil
	}
	if statusCode(err) == http.StatusNotFound {
		return false, nil
	}
	return false, err
}
