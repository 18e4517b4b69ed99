package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

const searchTypeHybrid = "hybrid_semantic_search"

// CollectionTargeting decides whether a planner-emitted category filter narrows the searched collections.
type CollectionTargeting string

const (
	// TargetingPayload searches every collection and treats the category filter as a payload match only.
	TargetingPayload CollectionTargeting = "payload"
	// TargetingNarrow searches only the collection named by the planner's category filter.
	TargetingNarrow CollectionTargeting = "narrow"
)

func ParseCollectionTargeting(raw string) CollectionTargeting {
	if CollectionTargeting(strings.ToLower(strings.TrimSpace(raw))) == TargetingNarrow {
		return TargetingNarrow
	}
	return TargetingPayload
}

type SearchSettings struct {
	DefaultThreshold  float64
	FilteredThreshold float64
	DefaultLimit      int
	Targeting         CollectionTargeting
}

func DefaultSearchSettings() SearchSettings {
	return SearchSettings{
		DefaultThreshold:  0.3,
		FilteredThreshold: 0.1,
		DefaultLimit:      100,
		Targeting:         TargetingPayload,
	}
}

type SearchUseCase struct {
	planner  *QueryPlanner
	embedder ports.Embedder
	store    ports.ContractStore
	settings SearchSettings
}

func NewSearchUseCase(
	planner *QueryPlanner,
	embedder ports.Embedder,
	store ports.ContractStore,
	settings SearchSettings,
) *SearchUseCase {
	def := DefaultSearchSettings()
	if settings.DefaultLimit <= 0 {
		settings.DefaultLimit = def.DefaultLimit
	}
	if settings.Targeting == "" {
		settings.Targeting = def.Targeting
	}
	return &SearchUseCase{
		planner:  planner,
		embedder: embedder,
		store:    store,
		settings: settings,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req ports.SearchRequest) (domain.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.SearchResult{}, domain.InvalidInput("search", "query is required")
	}
	category, err := optionalCategory(req.Category)
	if err != nil {
		return domain.SearchResult{}, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = uc.settings.DefaultLimit
	}

	plan, hits, err := uc.retrieve(ctx, query, category, limit)
	if err != nil {
		return domain.SearchResult{}, err
	}

	results := make([]domain.SearchHit, 0, len(hits))
	for _, hit := range hits {
		results = append(results, domain.SearchHit{
			ID:    hit.Record.ID,
			Score: roundScore(hit.Score),
			Data:  hit.Record.PublicPayload(),
		})
	}
	return domain.SearchResult{
		SearchType: searchTypeHybrid,
		Query:      query,
		SearchPlan: plan,
		Results:    results,
	}, nil
}

// retrieve plans, embeds, fans out over the target collections and merges. A plan with filters
// embeds the raw query under the lower threshold, since the filters already carry the precision.
func (uc *SearchUseCase) retrieve(
	ctx context.Context,
	query string,
	category domain.Category,
	limit int,
) (domain.SearchPlan, []domain.ScoredContract, error) {
	plan := uc.planner.Plan(ctx, query, category)

	embedText := plan.SemanticQuery
	threshold := uc.settings.DefaultThreshold
	if plan.HasFilters() {
		embedText = query
		threshold = uc.settings.FilteredThreshold
	}

	vector, err := uc.embedder.EmbedQuery(ctx, embedText)
	if err != nil {
		return plan, nil, fmt.Errorf("embed query: %w", err)
	}

	filter := domain.FilterFromPlan(plan, AllowedFilterKeys(category))
	collections := TargetCollections(category, plan, uc.settings.Targeting)

	results := make([][]domain.ScoredContract, len(collections))
	errs := make([]error, len(collections))
	var g errgroup.Group
	for i, collection := range collections {
		g.Go(func() error {
			results[i], errs[i] = uc.store.Search(ctx, collection, vector, filter, limit, threshold)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		slog.Warn("collection_search_failed", "collection", collections[i], "error", err)
	}
	if failed > 0 && failed == len(collections) {
		return plan, nil, fmt.Errorf("search collections: %w", errors.Join(errs...))
	}

	return plan, MergeResults(results, limit), nil
}

// TargetCollections returns the category's collection for a scoped query and every collection
// otherwise, unless narrow targeting follows a planner-emitted category filter.
func TargetCollections(category domain.Category, plan domain.SearchPlan, targeting CollectionTargeting) []string {
	if category.Valid() {
		return []string{category.Collection()}
	}
	if targeting == TargetingNarrow {
		if filtered, ok := plan.CategoryFilter(); ok {
			return []string{filtered.Collection()}
		}
	}
	return domain.AllCollections()
}

func optionalCategory(raw string) (domain.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return domain.ParseCategory(raw)
}

func roundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}
