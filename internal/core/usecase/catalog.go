package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

// CatalogUseCase serves listings and alerts through the cache. Cached values keep only durable
// pointers; viewable URLs are attached to a copy on every read.
type CatalogUseCase struct {
	store  ports.ContractStore
	cache  ports.ContractCache
	alerts *AlertEngine
	urls   *URLSigner
}

func NewCatalogUseCase(
	store ports.ContractStore,
	cache ports.ContractCache,
	alerts *AlertEngine,
	urls *URLSigner,
) *CatalogUseCase {
	return &CatalogUseCase{
		store:  store,
		cache:  cache,
		alerts: alerts,
		urls:   urls,
	}
}

func (uc *CatalogUseCase) ListAll(ctx context.Context) ([]domain.ContractSummary, error) {
	key := domain.AllContractsKey()
	if items, ok := uc.cache.GetListing(key); ok {
		return uc.withViewableURLs(ctx, items), nil
	}

	items := make([]domain.ContractSummary, 0)
	for _, collection := range domain.AllCollections() {
		rows, err := uc.listCollection(ctx, collection)
		if err != nil {
			return nil, err
		}
		items = append(items, rows...)
	}

	uc.cache.SetListing(key, items)
	return uc.withViewableURLs(ctx, items), nil
}

func (uc *CatalogUseCase) ListByCategory(ctx context.Context, rawCategory string) ([]domain.ContractSummary, error) {
	category, err := domain.ParseCategory(rawCategory)
	if err != nil {
		return nil, err
	}
	key := domain.CategoryListingKey(category)
	if items, ok := uc.cache.GetListing(key); ok {
		return uc.withViewableURLs(ctx, items), nil
	}

	items, err := uc.listCollection(ctx, category.Collection())
	if err != nil {
		return nil, err
	}

	uc.cache.SetListing(key, items)
	return uc.withViewableURLs(ctx, items), nil
}

func (uc *CatalogUseCase) AlertsAndReminders(ctx context.Context) (domain.AlertsReport, error) {
	key := domain.AlertsRemindersKey()
	report, ok := uc.cache.GetAlerts(key)
	if !ok {
		computed, err := uc.alerts.Compute(ctx)
		if err != nil {
			return domain.AlertsReport{}, fmt.Errorf("compute alerts: %w", err)
		}
		uc.cache.SetAlerts(key, computed)
		report = computed
	}

	out := report.Clone()
	for i := range out.Alerts {
		out.Alerts[i].ViewableURL = uc.urls.Viewable(ctx, out.Alerts[i].S3URL)
	}
	for i := range out.Reminders {
		out.Reminders[i].ViewableURL = uc.urls.Viewable(ctx, out.Reminders[i].S3URL)
	}
	return out, nil
}

// InvalidateCategory drops every cache key a write into category makes stale.
func (uc *CatalogUseCase) InvalidateCategory(category domain.Category) {
	keys := domain.KeysAffectedByWrite(category)
	uc.cache.Invalidate(keys...)
	slog.Info("cache_invalidated", "category", category, "keys", len(keys))
}

func (uc *CatalogUseCase) listCollection(ctx context.Context, collection string) ([]domain.ContractSummary, error) {
	exists, err := uc.store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		return []domain.ContractSummary{}, nil
	}
	records, err := uc.store.Scroll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("scroll %s: %w", collection, err)
	}
	out := make([]domain.ContractSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, domain.Summarize(rec, collection))
	}
	return out, nil
}

func (uc *CatalogUseCase) withViewableURLs(ctx context.Context, items []domain.ContractSummary) []domain.ContractSummary {
	out := make([]domain.ContractSummary, len(items))
	copy(out, items)
	for i := range out {
		out[i].ViewableURL = uc.urls.Viewable(ctx, out[i].S3URL)
	}
	return out
}
