package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
)

type invalidatorFake struct {
	categories []domain.Category
}

func (f *invalidatorFake) InvalidateCategory(c domain.Category) {
	f.categories = append(f.categories, c)
}

func newIngestFixture(reply string) (*IngestContractUseCase, *storeFake, *objectStorageFake, *invalidatorFake, *eventPublisherFake) {
	store := newStoreFake()
	storage := newObjectStorageFake()
	invalidator := &invalidatorFake{}
	events := &eventPublisherFake{}
	uc := NewIngestContractUseCase(
		storage,
		textExtractorFake{},
		NewStructuredExtractor(&oracleFake{reply: reply}, 0),
		&embedderFake{vector: []float32{0.3, 0.4}},
		store,
		invalidator,
		events,
	)
	return uc, store, storage, invalidator, events
}

func TestIngestUploadStoresIndexesAndInvalidates(t *testing.T) {
	uc, store, storage, invalidator, events := newIngestFixture(`{"lender_name": "First Bank", "loan_amount": "50000"}`)

	result, err := uc.Upload(context.Background(), ports.UploadRequest{
		Filename:    "my loan (final).pdf",
		ContentType: "application/pdf",
		Data:        []byte("loan agreement text"),
		Category:    "loan_agreement",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.ID == "" || len(store.upserts) != 1 || !strings.HasPrefix(store.upserts[0], "loan_agreements/") {
		t.Fatalf("unexpected upsert %v for %s", store.upserts, result.ID)
	}

	uri, _ := result.Payload["s3_url"].(string)
	if !strings.HasPrefix(uri, "s3://contracts/loan_agreements/") || !strings.HasSuffix(uri, "-my_loan__final_.pdf") {
		t.Fatalf("unexpected object uri %q", uri)
	}
	if _, ok := storage.objects[uri]; !ok {
		t.Fatalf("expected object stored at %q", uri)
	}
	if result.Payload["lender_name"] != "First Bank" || result.Payload["due_date"] != nil {
		t.Fatalf("unexpected payload %#v", result.Payload)
	}
	if len(invalidator.categories) != 1 || invalidator.categories[0] != domain.CategoryLoanAgreement {
		t.Fatalf("expected loan category invalidated, got %v", invalidator.categories)
	}
	if len(events.events) != 1 || events.events[0].ContractID != result.ID {
		t.Fatalf("expected ingestion event, got %+v", events.events)
	}
}

func TestIngestUploadValidatesInput(t *testing.T) {
	uc, store, _, _, _ := newIngestFixture(`{}`)
	ctx := context.Background()

	if _, err := uc.Upload(ctx, ports.UploadRequest{Filename: "a.pdf", Category: "nda"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty file, got %v", err)
	}
	if _, err := uc.Upload(ctx, ports.UploadRequest{Filename: "a.pdf", Data: []byte("x"), Category: "lease"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for category, got %v", err)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("expected no upsert")
	}
}

func TestIngestUploadAbortsOnEmbeddingFailure(t *testing.T) {
	uc, store, _, invalidator, _ := newIngestFixture(`{}`)
	uc.embedder = &embedderFake{err: errors.New("embedder down")}

	if _, err := uc.Upload(context.Background(), ports.UploadRequest{Filename: "a.pdf", Data: []byte("x"), Category: "nda"}); err == nil {
		t.Fatalf("expected embed error")
	}
	if len(store.upserts) != 0 || len(invalidator.categories) != 0 {
		t.Fatalf("expected no upsert and no invalidation")
	}
}

func TestIngestUploadSurvivesEventPublishFailure(t *testing.T) {
	uc, _, _, _, events := newIngestFixture(`{}`)
	events.err = errors.New("nats down")
	if _, err := uc.Upload(context.Background(), ports.UploadRequest{Filename: "a.pdf", Data: []byte("x"), Category: "nda"}); err != nil {
		t.Fatalf("publish failure must not fail upload: %v", err)
	}
}

func TestUploadedLoanShowsUpAsThreeDayAlert(t *testing.T) {
	store := newStoreFake()
	storage := newObjectStorageFake()
	cache := newCacheFake()
	engine := NewAlertEngine(store, DefaultAlertWindows(), WithClock(fixedClock(2025, time.February, 12)))
	catalog := NewCatalogUseCase(store, cache, engine, NewURLSigner(storage, time.Hour))
	ingest := NewIngestContractUseCase(
		storage,
		textExtractorFake{},
		NewStructuredExtractor(&oracleFake{reply: `{"loan_amount": "50000", "due_date": "02/15/2025", "borrower_name": "Dana"}`}, 0),
		&embedderFake{vector: []float32{1, 0}},
		store,
		catalog,
		nil,
	)

	ctx := context.Background()
	if _, err := catalog.AlertsAndReminders(ctx); err != nil {
		t.Fatalf("warm alerts: %v", err)
	}
	if _, err := ingest.Upload(ctx, ports.UploadRequest{Filename: "loan.pdf", Data: []byte("%PDF loan"), Category: "loan_agreement"}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	report, err := catalog.AlertsAndReminders(ctx)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(report.Alerts) != 1 {
		t.Fatalf("expected the uploaded loan as an alert, got %+v", report)
	}
	alert := report.Alerts[0]
	if alert.DaysLeft != 3 || alert.Type != "loan-due" || alert.Title != "Dana" {
		t.Fatalf("unexpected alert %+v", alert)
	}
	if !strings.HasPrefix(alert.ViewableURL, "https://signed.example/") {
		t.Fatalf("expected fresh viewable url, got %q", alert.ViewableURL)
	}
}
