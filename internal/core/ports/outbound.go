package ports

import (
	"context"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

// Embedder builds fixed-length vectors for documents and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Oracle is the LLM completion service. Its output is untrusted free text.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ObjectStorage stores original document binaries behind durable URIs.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, uri string) ([]byte, error)
	Presign(ctx context.Context, uri string, ttl time.Duration) (string, error)
}

// TextExtractor turns document bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// ContractStore is the multi-collection vector store of contract records.
type ContractStore interface {
	EnsureCollection(ctx context.Context, collection string) error
	SetupSchema(ctx context.Context) (domain.SetupReport, error)
	Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]any) error
	Search(ctx context.Context, collection string, vector []float32, filter domain.PayloadFilter, limit int, scoreThreshold float64) ([]domain.ScoredContract, error)
	Scroll(ctx context.Context, collection string) ([]domain.ContractRecord, error)
	ScrollWithField(ctx context.Context, collection, field string) ([]domain.ContractRecord, error)
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// HistoryLog is the append-only document log of interactions.
type HistoryLog interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)
}

// HistoryIndex indexes interactions for semantic recall.
type HistoryIndex interface {
	IndexEntry(ctx context.Context, entry domain.HistoryEntry, vector []float32) error
	SearchEntries(ctx context.Context, userID string, vector []float32, limit int) ([]domain.RecalledEntry, error)
}

// EventPublisher broadcasts ingestion events to other replicas.
type EventPublisher interface {
	PublishContractIngested(ctx context.Context, event domain.IngestionEvent) error
}

// BatchRunner runs n independent jobs with bounded concurrency and waits for all of them.
type BatchRunner interface {
	Run(ctx context.Context, n int, job func(ctx context.Context, i int)) error
}

// ContractCache memoizes listings and alert computations under typed keys.
type ContractCache interface {
	GetListing(key domain.CacheKey) ([]domain.ContractSummary, bool)
	SetListing(key domain.CacheKey, items []domain.ContractSummary)
	GetAlerts(key domain.CacheKey) (domain.AlertsReport, bool)
	SetAlerts(key domain.CacheKey, report domain.AlertsReport)
	Invalidate(keys ...domain.CacheKey)
}
