package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

const defaultCapacity = 64

// Observer receives hit/miss notifications per key kind.
type Observer interface {
	ObserveCacheLookup(kind string, hit bool)
	ObserveCacheInvalidation(kind string)
}

type Config struct {
	ListingTTL time.Duration
	AlertsTTL  time.Duration
	Capacity   int
}

func DefaultConfig() Config {
	return Config{
		ListingTTL: 24 * time.Hour,
		AlertsTTL:  30 * time.Minute,
		Capacity:   defaultCapacity,
	}
}

// Store is the process-wide cache of listings and alert reports. Writes are last-writer-wins;
// entries expire after their key kind's TTL or on explicit invalidation.
type Store struct {
	listings *expirable.LRU[domain.CacheKey, []domain.ContractSummary]
	alerts   *expirable.LRU[domain.CacheKey, domain.AlertsReport]
	observer Observer
}

func New(cfg Config, observer Observer) *Store {
	def := DefaultConfig()
	if cfg.ListingTTL <= 0 {
		cfg.ListingTTL = def.ListingTTL
	}
	if cfg.AlertsTTL <= 0 {
		cfg.AlertsTTL = def.AlertsTTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	return &Store{
		listings: expirable.NewLRU[domain.CacheKey, []domain.ContractSummary](cfg.Capacity, nil, cfg.ListingTTL),
		alerts:   expirable.NewLRU[domain.CacheKey, domain.AlertsReport](cfg.Capacity, nil, cfg.AlertsTTL),
		observer: observer,
	}
}

func (s *Store) GetListing(key domain.CacheKey) ([]domain.ContractSummary, bool) {
	items, ok := s.listings.Get(key)
	s.observe(key, ok)
	if !ok {
		return nil, false
	}
	out := make([]domain.ContractSummary, len(items))
	copy(out, items)
	return out, true
}

func (s *Store) SetListing(key domain.CacheKey, items []domain.ContractSummary) {
	stored := make([]domain.ContractSummary, len(items))
	copy(stored, items)
	for i := range stored {
		stored[i].ViewableURL = ""
	}
	s.listings.Add(key, stored)
}

func (s *Store) GetAlerts(key domain.CacheKey) (domain.AlertsReport, bool) {
	report, ok := s.alerts.Get(key)
	s.observe(key, ok)
	if !ok {
		return domain.AlertsReport{}, false
	}
	return report.Clone(), true
}

func (s *Store) SetAlerts(key domain.CacheKey, report domain.AlertsReport) {
	stored := report.Clone()
	for i := range stored.Alerts {
		stored.Alerts[i].ViewableURL = ""
	}
	for i := range stored.Reminders {
		stored.Reminders[i].ViewableURL = ""
	}
	s.alerts.Add(key, stored)
}

func (s *Store) Invalidate(keys ...domain.CacheKey) {
	for _, key := range keys {
		s.listings.Remove(key)
		s.alerts.Remove(key)
		if s.observer != nil {
			s.observer.ObserveCacheInvalidation(key.KindLabel())
		}
	}
}

func (s *Store) observe(key domain.CacheKey, hit bool) {
	if s.observer != nil {
		s.observer.ObserveCacheLookup(key.KindLabel(), hit)
	}
}
