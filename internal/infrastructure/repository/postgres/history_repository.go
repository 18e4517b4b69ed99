package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

const historySchemaLockID = int64(2026101501)

// HistoryRepository is the append-only interaction log.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across replica startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, historySchemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chat_history (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	query TEXT NOT NULL,
	response TEXT NOT NULL,
	chat_with_doc JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_history_user_created ON chat_history(user_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Append(ctx context.Context, entry domain.HistoryEntry) error {
	docs := entry.ChatWithDoc
	if docs == nil {
		docs = map[string]domain.DocChat{}
	}
	docsJSON, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal doc chats: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO chat_history (id, user_id, role, query, response, chat_with_doc, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		entry.ID, entry.UserID, entry.Role, entry.Query, entry.Response, docsJSON, entry.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// ListByUser returns the user's entries newest first. A non-positive limit returns all of them.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	query := `
SELECT id, user_id, role, query, response, chat_with_doc, created_at
FROM chat_history
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += `
LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var entry domain.HistoryEntry
		var docsRaw []byte
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Role, &entry.Query, &entry.Response, &docsRaw, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if len(docsRaw) > 0 {
			if err := json.Unmarshal(docsRaw, &entry.ChatWithDoc); err != nil {
				return nil, fmt.Errorf("unmarshal doc chats: %w", err)
			}
		}
		if len(entry.ChatWithDoc) == 0 {
			entry.ChatWithDoc = nil
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}
