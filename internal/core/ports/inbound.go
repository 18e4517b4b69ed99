package ports

import (
	"context"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

// UploadRequest is one document handed to ingestion.
type UploadRequest struct {
	Filename    string
	ContentType string
	Data        []byte
	Category    string
}

// UploadResult is the stored record and its payload.
type UploadResult struct {
	ID      string         `json:"qdrant_id"`
	Payload map[string]any `json:"data"`
}

// ContractIngestor stores, extracts and indexes uploaded contracts.
type ContractIngestor interface {
	Upload(ctx context.Context, req UploadRequest) (UploadResult, error)
}

// SearchRequest is a natural-language contract search.
type SearchRequest struct {
	Query    string
	Category string
	Limit    int
}

// ContractSearcher runs planned hybrid searches.
type ContractSearcher interface {
	Search(ctx context.Context, req SearchRequest) (domain.SearchResult, error)
}

// AnswerRequest is a question over stored or explicitly selected documents.
type AnswerRequest struct {
	Query        string
	Category     string
	ScopedSearch bool
	S3URLs       []string
}

// QuestionAnswerer answers questions with retrieval-augmented generation.
type QuestionAnswerer interface {
	Answer(ctx context.Context, req AnswerRequest) (domain.AnswerResult, error)
	ChatWithDocument(ctx context.Context, query, docURL string) (string, error)
	Summarize(ctx context.Context, uris []string) (domain.SummaryResult, error)
}

// ContractLister serves cached contract listings with fresh viewable URLs.
type ContractLister interface {
	ListAll(ctx context.Context) ([]domain.ContractSummary, error)
	ListByCategory(ctx context.Context, category string) ([]domain.ContractSummary, error)
}

// AlertReader serves cached alerts and reminders with fresh viewable URLs.
type AlertReader interface {
	AlertsAndReminders(ctx context.Context) (domain.AlertsReport, error)
}

// HistoryService records and reads interactions.
type HistoryService interface {
	Save(ctx context.Context, query, response string, doc *domain.DocChat) (domain.HistoryEntry, error)
	Conversation(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	DocumentChats(ctx context.Context, docName string) ([]domain.DocChatRecord, error)
	Recall(ctx context.Context, query string, topK int) ([]domain.RecalledEntry, error)
}

// SchemaManager provisions vector collections and indexes.
type SchemaManager interface {
	Setup(ctx context.Context) (domain.SetupReport, error)
}
