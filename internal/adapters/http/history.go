package httpadapter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

const defaultRecallTopK = 5

func (rt *Router) chatHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	entries, err := rt.services.History.Conversation(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, "chat history", err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (rt *Router) saveChatHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Query    string  `json:"query"`
		Response string  `json:"response"`
		DocURL   *string `json:"doc_s3_url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.Response) == "" {
		writeError(w, http.StatusBadRequest, "Both 'query' and 'response' are required.")
		return
	}

	var doc *domain.DocChat
	if url := strings.TrimSpace(deref(req.DocURL)); url != "" {
		doc = &domain.DocChat{DocURL: url, Query: req.Query, Response: req.Response}
	}
	entry, err := rt.services.History.Save(r.Context(), req.Query, req.Response, doc)
	if err != nil {
		writeDomainError(w, r, "save chat history", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Chat interaction saved.",
		"id":      entry.ID,
	})
}

func (rt *Router) documentChatHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	docName := strings.TrimSpace(r.URL.Query().Get("doc_name"))
	if docName == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'doc_name' is required.")
		return
	}

	chats, err := rt.services.History.DocumentChats(r.Context(), docName)
	if err != nil {
		writeDomainError(w, r, "document chat history", err)
		return
	}
	if len(chats) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("No chats found for document '%s'", docName),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": docName,
		"chats":    chats,
	})
}

func (rt *Router) searchChatHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter 'q' is required.")
		return
	}
	topK := defaultRecallTopK
	if err := runtime.BindQueryParameter("form", true, false, "top_k", r.URL.Query(), &topK); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if topK <= 0 {
		topK = defaultRecallTopK
	}

	recalled, err := rt.services.History.Recall(r.Context(), query, topK)
	if err != nil {
		writeDomainError(w, r, "search chat history", err)
		return
	}
	if recalled == nil {
		recalled = []domain.RecalledEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": recalled,
	})
}
