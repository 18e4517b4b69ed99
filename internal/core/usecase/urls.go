package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

const defaultPresignTTL = time.Hour

// URLSigner turns durable storage pointers into ephemeral viewable URLs.
type URLSigner struct {
	storage ports.ObjectStorage
	ttl     time.Duration
}

func NewURLSigner(storage ports.ObjectStorage, ttl time.Duration) *URLSigner {
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &URLSigner{storage: storage, ttl: ttl}
}

// Viewable never fails: a presign error degrades to the durable pointer.
func (s *URLSigner) Viewable(ctx context.Context, uri string) string {
	if uri == "" || s == nil || s.storage == nil {
		return uri
	}
	url, err := s.storage.Presign(ctx, uri, s.ttl)
	if err != nil || url == "" {
		slog.Warn("presign_failed", "uri", uri, "error", err)
		return uri
	}
	return url
}
