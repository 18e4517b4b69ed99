package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

const defaultExtractorMaxChars = 4000

// StructuredExtractor fills a category's field schema from contract text.
type StructuredExtractor struct {
	oracle   ports.Oracle
	maxChars int
}

func NewStructuredExtractor(oracle ports.Oracle, maxChars int) *StructuredExtractor {
	if maxChars <= 0 {
		maxChars = defaultExtractorMaxChars
	}
	return &StructuredExtractor{oracle: oracle, maxChars: maxChars}
}

// Extract only sends the first maxChars characters. Any oracle or parse failure yields the
// all-null variant so ingestion can continue.
func (e *StructuredExtractor) Extract(ctx context.Context, text string, category domain.Category) domain.Fields {
	empty := domain.EmptyFields(category)
	if empty == nil || e.oracle == nil {
		return empty
	}

	keys := domain.SchemaFields(category)
	snippet := truncateRunes(text, e.maxChars)
	raw, err := e.oracle.Complete(ctx, extractorSystemPrompt, buildExtractorUserPrompt(keys, snippet, e.maxChars))
	if err != nil {
		slog.Warn("extractor_fallback", "category", category, "reason", "oracle_error", "error", err)
		return empty
	}

	decoded, err := decodeOracleObject(raw)
	if err != nil {
		slog.Warn("extractor_fallback", "category", category, "reason", "unparsable_reply", "error", err)
		return empty
	}
	return domain.FieldsFromValues(category, decoded)
}

// BuildRecord assembles the record stored for an ingested document.
func (e *StructuredExtractor) BuildRecord(ctx context.Context, id, s3URL, text string, category domain.Category) domain.ContractRecord {
	return domain.ContractRecord{
		ID:           id,
		Category:     category,
		S3URL:        s3URL,
		Fields:       e.Extract(ctx, text, category),
		ContractText: text,
	}
}
