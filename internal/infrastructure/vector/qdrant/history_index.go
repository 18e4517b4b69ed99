package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/resilience"
)

// HistoryIndex keeps embeddings of recorded interactions in a dedicated collection, filtered by user.
type HistoryIndex struct {
	transport
	collection string

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func NewHistoryIndex(cfg Config, collection string, executor *resilience.Executor) *HistoryIndex {
	if strings.TrimSpace(collection) == "" {
		collection = "chat_history"
	}
	return &HistoryIndex{
		transport:  newTransport(cfg, executor),
		collection: collection,
	}
}

func (h *HistoryIndex) IndexEntry(ctx context.Context, entry domain.HistoryEntry, vector []float32) error {
	if len(vector) == 0 {
		return nil
	}
	if err := h.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}

	payload := map[string]any{
		"user_id":   entry.UserID,
		"role":      entry.Role,
		"query":     entry.Query,
		"response":  entry.Response,
		"timestamp": entry.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if len(entry.ChatWithDoc) > 0 {
		payload["chat_with_doc"] = entry.ChatWithDoc
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":      entry.ID,
			"vector":  vector,
			"payload": payload,
		}},
	}
	return h.call(ctx, "history_upsert", func(ctx context.Context) error {
		return h.doJSON(ctx, "history_upsert", http.MethodPut, collectionPath(h.collection, "/points?wait=true"), body, nil)
	})
}

type queryResponse struct {
	Result struct {
		Points []struct {
			ID      json.RawMessage `json:"id"`
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

type historyPayload struct {
	UserID      string                    `json:"user_id"`
	Role        string                    `json:"role"`
	Query       string                    `json:"query"`
	Response    string                    `json:"response"`
	Timestamp   string                    `json:"timestamp"`
	ChatWithDoc map[string]domain.DocChat `json:"chat_with_doc"`
}

func (h *HistoryIndex) SearchEntries(ctx context.Context, userID string, vector []float32, limit int) ([]domain.RecalledEntry, error) {
	if len(vector) == 0 || strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 4
	}

	body := map[string]any{
		"query":        vector,
		"limit":        limit,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{{
				"key":   "user_id",
				"match": map[string]any{"value": userID},
			}},
		},
	}

	var parsed queryResponse
	err := h.call(ctx, "history_query", func(ctx context.Context) error {
		return h.doJSON(ctx, "history_query", http.MethodPost, collectionPath(h.collection, "/points/query"), body, &parsed)
	})
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	out := make([]domain.RecalledEntry, 0, len(parsed.Result.Points))
	for _, p := range parsed.Result.Points {
		var payload historyPayload
		if len(p.Payload) > 0 {
			if err := json.Unmarshal(p.Payload, &payload); err != nil {
				continue
			}
		}
		ts, _ := time.Parse(time.RFC3339Nano, payload.Timestamp)
		out = append(out, domain.RecalledEntry{
			Score: p.Score,
			Entry: domain.HistoryEntry{
				ID:          decodePointID(p.ID),
				UserID:      payload.UserID,
				Role:        payload.Role,
				Query:       payload.Query,
				Response:    payload.Response,
				Timestamp:   ts,
				ChatWithDoc: payload.ChatWithDoc,
			},
		})
	}
	return out, nil
}

func (h *HistoryIndex) ensureCollection(ctx context.Context, vectorSize int) error {
	h.ensureMu.Lock()
	defer h.ensureMu.Unlock()
	if h.ensuredCollection && h.ensuredVectorSize == vectorSize {
		return nil
	}
	if err := createCollection(ctx, &h.transport, h.collection, vectorSize); err != nil {
		return err
	}
	h.ensuredCollection = true
	h.ensuredVectorSize = vectorSize
	return nil
}
