package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

const uploadOperation = "upload contract"

type cacheInvalidator interface {
	InvalidateCategory(category domain.Category)
}

// IngestContractUseCase stores the original, extracts fields, indexes the record and invalidates caches.
type IngestContractUseCase struct {
	storage       ports.ObjectStorage
	textExtractor ports.TextExtractor
	extractor     *StructuredExtractor
	embedder      ports.Embedder
	store         ports.ContractStore
	invalidator   cacheInvalidator
	events        ports.EventPublisher
}

func NewIngestContractUseCase(
	storage ports.ObjectStorage,
	textExtractor ports.TextExtractor,
	extractor *StructuredExtractor,
	embedder ports.Embedder,
	store ports.ContractStore,
	invalidator cacheInvalidator,
	events ports.EventPublisher,
) *IngestContractUseCase {
	return &IngestContractUseCase{
		storage:       storage,
		textExtractor: textExtractor,
		extractor:     extractor,
		embedder:      embedder,
		store:         store,
		invalidator:   invalidator,
		events:        events,
	}
}

func (uc *IngestContractUseCase) Upload(ctx context.Context, req ports.UploadRequest) (ports.UploadResult, error) {
	if len(req.Data) == 0 {
		return ports.UploadResult{}, domain.InvalidInput(uploadOperation, "contract_file is required")
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		return ports.UploadResult{}, err
	}
	collection := category.Collection()

	key := fmt.Sprintf("%s/%s-%s", collection, uuid.NewString(), sanitizeFilename(req.Filename))
	uri, err := uc.storage.Put(ctx, key, req.Data, contentTypeOrDefault(req.ContentType))
	if err != nil {
		return ports.UploadResult{}, fmt.Errorf("save to object storage: %w", err)
	}

	text, err := uc.textExtractor.ExtractText(ctx, req.Data)
	if err != nil {
		return ports.UploadResult{}, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return ports.UploadResult{}, fmt.Errorf("extract text: %w", errNoExtractedText)
	}

	id := uuid.NewString()
	record := uc.extractor.BuildRecord(ctx, id, uri, text, category)

	vector, err := uc.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return ports.UploadResult{}, fmt.Errorf("embed contract: %w", err)
	}

	payload := record.Payload()
	if err := uc.store.Upsert(ctx, collection, id, vector, payload); err != nil {
		return ports.UploadResult{}, fmt.Errorf("upsert contract: %w", err)
	}

	if uc.invalidator != nil {
		uc.invalidator.InvalidateCategory(category)
	}
	uc.publish(ctx, domain.IngestionEvent{
		ContractID: id,
		Category:   category,
		S3URL:      uri,
		OccurredAt: time.Now().UTC(),
	})

	return ports.UploadResult{ID: id, Payload: payload}, nil
}

func (uc *IngestContractUseCase) publish(ctx context.Context, event domain.IngestionEvent) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishContractIngested(ctx, event); err != nil {
		slog.Warn("ingestion_event_publish_failed", "contract_id", event.ContractID, "error", err)
	}
}

func contentTypeOrDefault(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return "application/pdf"
	}
	return ct
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "contract.pdf"
	}
	return base
}
