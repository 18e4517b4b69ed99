package domain

// CacheKeyKind enumerates the named caches.
type CacheKeyKind int

const (
	CacheAllContracts CacheKeyKind = iota + 1
	CacheAlertsReminders
	CacheCategoryListing
)

// CacheKey is a typed cache key. Category is only set for CacheCategoryListing.
type CacheKey struct {
	Kind     CacheKeyKind
	Category Category
}

func AllContractsKey() CacheKey    { return CacheKey{Kind: CacheAllContracts} }
func AlertsRemindersKey() CacheKey { return CacheKey{Kind: CacheAlertsReminders} }

func CategoryListingKey(c Category) CacheKey {
	return CacheKey{Kind: CacheCategoryListing, Category: c}
}

// String renders the key the way it shows up in logs and metrics.
func (k CacheKey) String() string {
	switch k.Kind {
	case CacheAllContracts:
		return "all_contracts_list"
	case CacheAlertsReminders:
		return "alerts_reminders"
	case CacheCategoryListing:
		return "contracts_list_" + string(k.Category)
	default:
		return "unknown"
	}
}

// KindLabel is the low-cardinality form of the key.
func (k CacheKey) KindLabel() string {
	switch k.Kind {
	case CacheAllContracts:
		return "all_contracts"
	case CacheAlertsReminders:
		return "alerts_reminders"
	case CacheCategoryListing:
		return "category_listing"
	default:
		return "unknown"
	}
}

// KeysAffectedByWrite lists every key a write into category c makes stale.
func KeysAffectedByWrite(c Category) []CacheKey {
	return []CacheKey{AllContractsKey(), AlertsRemindersKey(), CategoryListingKey(c)}
}
