package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/infrastructure/resilience"
)

const errorBodyLimit = 2048

// Config holds the connection settings shared by the gateway and the history index.
type Config struct {
	BaseURL    string
	APIKey     string
	VectorSize int
	Timeout    time.Duration
	ScrollPage int
	ScrollMax  int
}

type transport struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func newTransport(cfg Config, executor *resilience.Executor) transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return transport{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

// call runs fn through the executor, when one is configured, and tags transient failures as temporary.
func (t *transport) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if t.executor == nil {
		err = fn(ctx)
	} else {
		err = t.executor.Execute(ctx, "qdrant."+operation, fn, classifyQdrantError)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

// doJSON sends payload as JSON and decodes a 2xx response into out. Non-2xx responses become *HTTPStatusError.
func (t *transport) doJSON(ctx context.Context, operation, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.apiKey != "" {
		req.Header.Set("api-key", t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func collectionPath(collection string, parts ...string) string {
	return "/collections/" + collection + strings.Join(parts, "")
}

// decodePointID accepts both UUID-string and integer point ids.
func decodePointID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
