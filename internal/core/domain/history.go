package domain

import "time"

// AnonymousUserID stands in for identity; the API has no authentication.
const AnonymousUserID = "anonymous_user_session"

// DocChat is the document-scoped part of a history entry.
type DocChat struct {
	DocURL   string `json:"doc_url"`
	Query    string `json:"query"`
	Response string `json:"response"`
}

// HistoryEntry is one recorded query/response interaction. Entries are append-only.
type HistoryEntry struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Role        string             `json:"role"`
	Query       string             `json:"query"`
	Response    string             `json:"response"`
	Timestamp   time.Time          `json:"timestamp"`
	ChatWithDoc map[string]DocChat `json:"chat_with_doc,omitempty"`
}

// DocChatRecord is a flattened document chat returned by document history lookups.
type DocChatRecord struct {
	DocKey    string    `json:"doc_key"`
	DocURL    string    `json:"doc_url"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// RecalledEntry is a history entry found by semantic recall.
type RecalledEntry struct {
	Entry HistoryEntry `json:"entry"`
	Score float64      `json:"score"`
}

// IngestionEvent is broadcast after a contract is stored.
type IngestionEvent struct {
	ContractID string    `json:"contract_id"`
	Category   Category  `json:"category"`
	S3URL      string    `json:"s3_url"`
	OccurredAt time.Time `json:"occurred_at"`
}
