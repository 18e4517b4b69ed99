package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

const (
	historyRoleAssistant = "assistant"
	defaultRecallTopK    = 5
)

// HistoryUseCase dual-writes interactions: the log is authoritative, the vector index is best effort.
type HistoryUseCase struct {
	log        ports.HistoryLog
	index      ports.HistoryIndex
	embedder   ports.Embedder
	vectorSize int
	userID     string
	now        func() time.Time
}

func NewHistoryUseCase(
	log ports.HistoryLog,
	index ports.HistoryIndex,
	embedder ports.Embedder,
	vectorSize int,
	userID string,
) *HistoryUseCase {
	if strings.TrimSpace(userID) == "" {
		userID = domain.AnonymousUserID
	}
	return &HistoryUseCase{
		log:        log,
		index:      index,
		embedder:   embedder,
		vectorSize: vectorSize,
		userID:     userID,
		now:        time.Now,
	}
}

func (uc *HistoryUseCase) Save(ctx context.Context, query, response string, doc *domain.DocChat) (domain.HistoryEntry, error) {
	query = strings.TrimSpace(query)
	response = strings.TrimSpace(response)
	if query == "" || response == "" {
		return domain.HistoryEntry{}, domain.InvalidInput("save history", "query and response are required")
	}

	entry := domain.HistoryEntry{
		ID:        uuid.NewString(),
		UserID:    uc.userID,
		Role:      historyRoleAssistant,
		Query:     query,
		Response:  response,
		Timestamp: uc.now().UTC(),
	}
	if doc != nil {
		entry.ChatWithDoc = map[string]domain.DocChat{domain.DocumentName(doc.DocURL): *doc}
	}

	if err := uc.log.Append(ctx, entry); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("append history: %w", err)
	}
	uc.indexEntry(ctx, entry)
	return entry, nil
}

// indexEntry falls back to a zero vector when embedding fails so the entry is still recallable by payload.
func (uc *HistoryUseCase) indexEntry(ctx context.Context, entry domain.HistoryEntry) {
	if uc.index == nil {
		return
	}
	vector, err := uc.embedder.EmbedQuery(ctx, historyEmbeddingText(entry))
	if err != nil {
		slog.Warn("history_embed_failed", "entry_id", entry.ID, "error", err)
		vector = make([]float32, uc.vectorSize)
	}
	if err := uc.index.IndexEntry(ctx, entry, vector); err != nil {
		slog.Warn("history_index_failed", "entry_id", entry.ID, "error", err)
	}
}

func historyEmbeddingText(entry domain.HistoryEntry) string {
	for name := range entry.ChatWithDoc {
		return fmt.Sprintf("Document: %s. Query: %s", name, entry.Query)
	}
	return entry.Query
}

// Conversation lists entries newest first; limit <= 0 returns all of them.
func (uc *HistoryUseCase) Conversation(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	entries, err := uc.log.ListByUser(ctx, uc.userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// DocumentChats returns document chats whose document key contains docName, case-insensitively.
func (uc *HistoryUseCase) DocumentChats(ctx context.Context, docName string) ([]domain.DocChatRecord, error) {
	needle := strings.ToLower(strings.TrimSpace(docName))
	if needle == "" {
		return nil, domain.InvalidInput("document history", "doc_name is required")
	}
	entries, err := uc.Conversation(ctx, 0)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DocChatRecord, 0)
	for _, entry := range entries {
		for key, chat := range entry.ChatWithDoc {
			if !strings.Contains(strings.ToLower(key), needle) {
				continue
			}
			out = append(out, domain.DocChatRecord{
				DocKey:    key,
				DocURL:    chat.DocURL,
				Query:     chat.Query,
				Response:  chat.Response,
				Timestamp: entry.Timestamp,
			})
		}
	}
	return out, nil
}

// Recall finds past interactions similar to query. Index failures degrade to an empty result.
func (uc *HistoryUseCase) Recall(ctx context.Context, query string, topK int) ([]domain.RecalledEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.InvalidInput("recall history", "q is required")
	}
	if topK <= 0 {
		topK = defaultRecallTopK
	}
	if uc.index == nil {
		return []domain.RecalledEntry{}, nil
	}

	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		slog.Warn("history_recall_failed", "stage", "embed", "error", err)
		return []domain.RecalledEntry{}, nil
	}
	hits, err := uc.index.SearchEntries(ctx, uc.userID, vector, topK)
	if err != nil {
		slog.Warn("history_recall_failed", "stage", "search", "error", err)
		return []domain.RecalledEntry{}, nil
	}
	return hits, nil
}
