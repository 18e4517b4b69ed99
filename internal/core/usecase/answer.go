package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

const documentSeparator = "\n\n=== DOCUMENT SEPARATOR ===\n\n"

var errNoExtractedText = errors.New("no text could be extracted from document")

type AnswerSettings struct {
	ContextLimit    int
	MaxContextChars int
	SummaryDocChars int
}

func DefaultAnswerSettings() AnswerSettings {
	return AnswerSettings{
		ContextLimit:    4,
		MaxContextChars: 12000,
		SummaryDocChars: 5000,
	}
}

// AnswerUseCase answers questions over retrieved or explicitly selected documents.
type AnswerUseCase struct {
	search    *SearchUseCase
	oracle    ports.Oracle
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	urls      *URLSigner
	history   *HistoryUseCase
	batch     ports.BatchRunner
	settings  AnswerSettings
}

func NewAnswerUseCase(
	search *SearchUseCase,
	oracle ports.Oracle,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	urls *URLSigner,
	history *HistoryUseCase,
	batch ports.BatchRunner,
	settings AnswerSettings,
) *AnswerUseCase {
	def := DefaultAnswerSettings()
	if settings.ContextLimit <= 0 {
		settings.ContextLimit = def.ContextLimit
	}
	if settings.SummaryDocChars <= 0 {
		settings.SummaryDocChars = def.SummaryDocChars
	}
	if batch == nil {
		batch = sequentialRunner{}
	}
	return &AnswerUseCase{
		search:    search,
		oracle:    oracle,
		storage:   storage,
		extractor: extractor,
		urls:      urls,
		history:   history,
		batch:     batch,
		settings:  settings,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, req ports.AnswerRequest) (domain.AnswerResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.AnswerResult{}, domain.InvalidInput("answer", "query is required")
	}
	// A scoped request without documents is answered from the whole store.
	if uris := compactStrings(req.S3URLs); req.ScopedSearch && len(uris) > 0 {
		return uc.answerScoped(ctx, query, uris)
	}

	category, err := optionalCategory(req.Category)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	_, hits, err := uc.search.retrieve(ctx, query, category, uc.settings.ContextLimit)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if len(hits) == 0 {
		return domain.AnswerResult{Results: []domain.DocumentAnswer{}, Answer: domain.NoDocumentsAnswer}, nil
	}

	results := make([]domain.DocumentAnswer, len(hits))
	err = uc.batch.Run(ctx, len(hits), func(ctx context.Context, i int) {
		results[i] = uc.answerHit(ctx, hits[i], query)
	})
	if err != nil {
		return domain.AnswerResult{}, fmt.Errorf("answer documents: %w", err)
	}
	if err := allFailed(results); err != nil {
		return domain.AnswerResult{}, err
	}

	uc.recordAnswers(ctx, query, results)
	return domain.AnswerResult{Results: results}, nil
}

func (uc *AnswerUseCase) answerScoped(ctx context.Context, query string, uris []string) (domain.AnswerResult, error) {
	results := make([]domain.DocumentAnswer, len(uris))
	err := uc.batch.Run(ctx, len(uris), func(ctx context.Context, i int) {
		results[i] = uc.answerURI(ctx, uris[i], query)
	})
	if err != nil {
		return domain.AnswerResult{}, fmt.Errorf("answer documents: %w", err)
	}
	if err := allFailed(results); err != nil {
		return domain.AnswerResult{}, err
	}

	uc.recordAnswers(ctx, query, results)
	return domain.AnswerResult{
		Results:           results,
		ScopedSearch:      true,
		DocumentsSearched: len(uris),
	}, nil
}

func (uc *AnswerUseCase) answerHit(ctx context.Context, hit domain.ScoredContract, query string) domain.DocumentAnswer {
	score := roundScore(hit.Score)
	out := domain.DocumentAnswer{
		ID:             hit.Record.ID,
		SourceName:     domain.DocumentName(hit.Record.S3URL),
		S3URL:          hit.Record.S3URL,
		ViewableURL:    uc.urls.Viewable(ctx, hit.Record.S3URL),
		RetrievalScore: &score,
		Collection:     hit.Collection,
	}

	text := hit.Record.ContractText
	if strings.TrimSpace(text) == "" {
		fetched, err := uc.documentText(ctx, hit.Record.S3URL)
		if err != nil {
			out.Answer = "Error reading document: " + err.Error()
			out.Failed = true
			return out
		}
		text = fetched
	}
	out.Answer, out.Failed = uc.complete(ctx, text, query)
	return out
}

func (uc *AnswerUseCase) answerURI(ctx context.Context, uri, query string) domain.DocumentAnswer {
	out := domain.DocumentAnswer{
		ID:          uri,
		SourceName:  domain.DocumentName(uri),
		S3URL:       uri,
		ViewableURL: uc.urls.Viewable(ctx, uri),
	}
	text, err := uc.documentText(ctx, uri)
	if err != nil {
		out.Answer = "Error reading document: " + err.Error()
		out.Failed = true
		return out
	}
	out.Answer, out.Failed = uc.complete(ctx, text, query)
	return out
}

func (uc *AnswerUseCase) complete(ctx context.Context, text, query string) (string, bool) {
	contextText := truncateRunes(text, uc.settings.MaxContextChars)
	answer, err := uc.oracle.Complete(ctx, answerSystemPrompt, buildAnswerUserPrompt(contextText, query))
	if err != nil {
		return "Error generating answer: " + err.Error(), true
	}
	return strings.TrimSpace(answer), false
}

// ChatWithDocument answers one question over one stored document and records it as a document chat.
func (uc *AnswerUseCase) ChatWithDocument(ctx context.Context, query, docURL string) (string, error) {
	query = strings.TrimSpace(query)
	docURL = strings.TrimSpace(docURL)
	if query == "" || docURL == "" {
		return "", domain.InvalidInput("chat with document", "query and viewable_url are required")
	}

	text, err := uc.documentText(ctx, docURL)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	answer, err := uc.oracle.Complete(ctx, answerSystemPrompt, buildAnswerUserPrompt(truncateRunes(text, uc.settings.MaxContextChars), query))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	answer = strings.TrimSpace(answer)

	if uc.history != nil {
		doc := &domain.DocChat{DocURL: docURL, Query: query, Response: answer}
		if _, err := uc.history.Save(ctx, query, answer, doc); err != nil {
			slog.Warn("history_save_failed", "error", err)
		}
	}
	return answer, nil
}

// Summarize builds one summary over several documents. Documents that cannot be read are skipped;
// the call fails only when none of them yields text.
func (uc *AnswerUseCase) Summarize(ctx context.Context, uris []string) (domain.SummaryResult, error) {
	uris = compactStrings(uris)
	if len(uris) == 0 {
		return domain.SummaryResult{}, domain.InvalidInput("summarize", "s3_urls are required")
	}

	texts := make([]string, len(uris))
	err := uc.batch.Run(ctx, len(uris), func(ctx context.Context, i int) {
		text, err := uc.documentText(ctx, uris[i])
		if err != nil {
			slog.Warn("summary_document_skipped", "uri", uris[i], "error", err)
			return
		}
		texts[i] = text
	})
	if err != nil {
		return domain.SummaryResult{}, fmt.Errorf("read documents: %w", err)
	}

	sections := make([]string, 0, len(uris))
	names := make([]string, 0, len(uris))
	for i, text := range texts {
		if text == "" {
			continue
		}
		name := domain.DocumentName(uris[i])
		names = append(names, name)
		sections = append(sections, fmt.Sprintf("Document %d: %s\n\n%s", len(sections)+1, name, truncateRunes(text, uc.settings.SummaryDocChars)))
	}
	if len(sections) == 0 {
		return domain.SummaryResult{}, domain.InvalidInput("summarize", "could not extract content from any documents")
	}

	combined := strings.Join(sections, documentSeparator)
	summary, err := uc.oracle.Complete(ctx, answerSystemPrompt, buildAnswerUserPrompt(combined, summaryQuestion))
	if err != nil {
		return domain.SummaryResult{}, fmt.Errorf("generate summary: %w", err)
	}
	return domain.SummaryResult{
		Summary:            strings.TrimSpace(summary),
		DocumentsProcessed: len(sections),
		DocumentNames:      names,
	}, nil
}

func (uc *AnswerUseCase) documentText(ctx context.Context, uri string) (string, error) {
	data, err := uc.storage.Get(ctx, uri)
	if err != nil {
		return "", err
	}
	text, err := uc.extractor.ExtractText(ctx, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errNoExtractedText
	}
	return text, nil
}

func (uc *AnswerUseCase) recordAnswers(ctx context.Context, query string, results []domain.DocumentAnswer) {
	if uc.history == nil {
		return
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s: %s", r.SourceName, r.Answer))
	}
	if _, err := uc.history.Save(ctx, query, strings.Join(parts, "\n\n"), nil); err != nil {
		slog.Warn("history_save_failed", "error", err)
	}
}

func allFailed(results []domain.DocumentAnswer) error {
	if len(results) == 0 {
		return nil
	}
	for _, r := range results {
		if !r.Failed {
			return nil
		}
	}
	return domain.WrapError(domain.ErrBatchFailed, "answer documents", errors.New(results[0].Answer))
}

func compactStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

type sequentialRunner struct{}

func (sequentialRunner) Run(ctx context.Context, n int, job func(context.Context, int)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		job(ctx, i)
	}
	return nil
}
