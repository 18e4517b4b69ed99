package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

func newSearchFixture(reply string, targeting CollectionTargeting) (*SearchUseCase, *storeFake, *embedderFake) {
	store := newStoreFake()
	embedder := &embedderFake{vector: []float32{0.1, 0.2}}
	settings := DefaultSearchSettings()
	settings.Targeting = targeting
	uc := NewSearchUseCase(NewQueryPlanner(&oracleFake{reply: reply}), embedder, store, settings)
	return uc, store, embedder
}

func TestTargetCollectionsWithAndWithoutHint(t *testing.T) {
	empty := domain.FallbackPlan("q")
	for _, c := range domain.AllCategories() {
		got := TargetCollections(c, empty, TargetingPayload)
		if len(got) != 1 || got[0] != c.Collection() {
			t.Fatalf("%s: expected single collection, got %v", c, got)
		}
	}
	got := TargetCollections("", empty, TargetingPayload)
	if strings.Join(got, ",") != strings.Join(domain.AllCollections(), ",") {
		t.Fatalf("expected all collections, got %v", got)
	}
}

func TestSearchUnscopedCategoryFilterPayloadTargeting(t *testing.T) {
	uc, store, _ := newSearchFixture(`{"semantic_query": "ndas with acme", "filters": {"category": "nda"}}`, TargetingPayload)

	if _, err := uc.Search(context.Background(), ports.SearchRequest{Query: "NDAs with Acme"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	searched := store.searchedCollections()
	sort.Strings(searched)
	if len(searched) != 3 {
		t.Fatalf("payload targeting must search every collection, got %v", searched)
	}
	for _, call := range store.searches {
		if len(call.filter.Must) != 1 || call.filter.Must[0].Key != "category" || call.filter.Must[0].Mode != domain.MatchKeyword {
			t.Fatalf("expected keyword category condition, got %+v", call.filter)
		}
	}
}

func TestSearchUnscopedCategoryFilterNarrowTargeting(t *testing.T) {
	uc, store, _ := newSearchFixture(`{"semantic_query": "ndas with acme", "filters": {"category": "nda"}}`, TargetingNarrow)

	if _, err := uc.Search(context.Background(), ports.SearchRequest{Query: "NDAs with Acme"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	searched := store.searchedCollections()
	if len(searched) != 1 || searched[0] != domain.CollectionNDAs {
		t.Fatalf("narrow targeting must search only ndas, got %v", searched)
	}
}

func TestSearchWithFiltersEmbedsOriginalQueryWithLowerThreshold(t *testing.T) {
	uc, store, embedder := newSearchFixture(`{"semantic_query": "salary terms", "filters": {"employee_name": "Jane"}}`, TargetingPayload)

	if _, err := uc.Search(context.Background(), ports.SearchRequest{Query: "What is Jane's salary?", Category: "employee_contract"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if embedder.queries[0] != "What is Jane's salary?" {
		t.Fatalf("expected original query embedded, got %q", embedder.queries[0])
	}
	if store.searches[0].threshold != 0.1 {
		t.Fatalf("expected filtered threshold, got %v", store.searches[0].threshold)
	}
	if store.searches[0].filter.Must[0].Mode != domain.MatchText {
		t.Fatalf("expected text match for name filter")
	}
}

func TestSearchWithoutFiltersEmbedsSemanticQuery(t *testing.T) {
	uc, store, embedder := newSearchFixture(`{"semantic_query": "late payment penalties", "filters": {}}`, TargetingPayload)

	if _, err := uc.Search(context.Background(), ports.SearchRequest{Query: "what happens if I pay late?"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if embedder.queries[0] != "late payment penalties" {
		t.Fatalf("expected semantic query embedded, got %q", embedder.queries[0])
	}
	if store.searches[0].threshold != 0.3 || store.searches[0].limit != 100 {
		t.Fatalf("unexpected defaults %+v", store.searches[0])
	}
}

func TestSearchMergesAndStripsContractText(t *testing.T) {
	uc, store, _ := newSearchFixture(`{}`, TargetingPayload)
	rec := domain.ContractRecord{ID: "n1", Category: domain.CategoryNDA, S3URL: "s3://b/n1", ContractText: "secret text", Fields: domain.NdaFields{}}
	store.hits[domain.CollectionNDAs] = []domain.ScoredContract{{Record: rec, Collection: domain.CollectionNDAs, Score: 0.812345}}
	store.hits[domain.CollectionLoanAgreements] = []domain.ScoredContract{{Record: domain.ContractRecord{ID: "l1", Category: domain.CategoryLoanAgreement}, Score: 0.9}}

	result, err := uc.Search(context.Background(), ports.SearchRequest{Query: "q", Limit: 5})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.SearchType != "hybrid_semantic_search" {
		t.Fatalf("unexpected search type %q", result.SearchType)
	}
	if len(result.Results) != 2 || result.Results[0].ID != "l1" {
		t.Fatalf("unexpected ranking %+v", result.Results)
	}
	if result.Results[1].Score != 0.8123 {
		t.Fatalf("expected rounded score, got %v", result.Results[1].Score)
	}
	if _, ok := result.Results[1].Data["contract_text"]; ok {
		t.Fatalf("contract_text must not be returned")
	}
}

func TestSearchToleratesPartialCollectionFailure(t *testing.T) {
	uc, store, _ := newSearchFixture(`{}`, TargetingPayload)
	store.searchErr[domain.CollectionNDAs] = errors.New("timeout")
	store.hits[domain.CollectionLoanAgreements] = []domain.ScoredContract{{Record: domain.ContractRecord{ID: "l1"}, Score: 0.5}}

	result, err := uc.Search(context.Background(), ports.SearchRequest{Query: "q"})
	if err != nil {
		t.Fatalf("expected partial failure to be absorbed, got %v", err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected surviving results, got %+v", result.Results)
	}
}

func TestSearchFailsWhenEveryCollectionFails(t *testing.T) {
	uc, store, _ := newSearchFixture(`{}`, TargetingPayload)
	for _, c := range domain.AllCollections() {
		store.searchErr[c] = errors.New("connection refused")
	}
	if _, err := uc.Search(context.Background(), ports.SearchRequest{Query: "q"}); err == nil {
		t.Fatalf("expected error when all collections fail")
	}
}

func TestSearchValidatesInput(t *testing.T) {
	uc, _, _ := newSearchFixture(`{}`, TargetingPayload)
	if _, err := uc.Search(context.Background(), ports.SearchRequest{Query: " "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty query, got %v", err)
	}
	if _, err := uc.Search(context.Background(), ports.SearchRequest{Query: "q", Category: "lease"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown category, got %v", err)
	}
}

func TestSearchEmbedFailurePropagates(t *testing.T) {
	uc, _, embedder := newSearchFixture(`{}`, TargetingPayload)
	embedder.err = errors.New("embedder down")
	if _, err := uc.Search(context.Background(), ports.SearchRequest{Query: "q"}); err == nil {
		t.Fatalf("expected embed error")
	}
}
