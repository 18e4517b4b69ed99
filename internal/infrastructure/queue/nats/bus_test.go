package nats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/resilience"
)

func TestDispatchDeliversForeignEvents(t *testing.T) {
	publisher := &Bus{subject: "contracts.ingested", replica: "replica-a"}
	consumer := &Bus{subject: "contracts.ingested", replica: "replica-b"}

	event := domain.IngestionEvent{
		ContractID: "c-1",
		Category:   domain.CategoryNDA,
		S3URL:      "s3://contracts/ndas/c-1.pdf",
		OccurredAt: time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC),
	}
	msg, err := publisher.encode(event)
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}

	var got []domain.IngestionEvent
	consumer.dispatch(context.Background(), msg, func(_ context.Context, e domain.IngestionEvent) {
		got = append(got, e)
	})
	if len(got) != 1 || got[0].ContractID != "c-1" || got[0].Category != domain.CategoryNDA {
		t.Fatalf("unexpected events: %#v", got)
	}
}

func TestDispatchSkipsOwnEvents(t *testing.T) {
	bus := &Bus{subject: "contracts.ingested", replica: "replica-a"}
	msg, err := bus.encode(domain.IngestionEvent{ContractID: "c-1", Category: domain.CategoryNDA})
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}

	called := false
	bus.dispatch(context.Background(), msg, func(context.Context, domain.IngestionEvent) { called = true })
	if called {
		t.Fatalf("own events must not be delivered")
	}
}

func TestDispatchDropsMalformedPayload(t *testing.T) {
	bus := &Bus{subject: "contracts.ingested", replica: "replica-a"}
	called := false
	bus.dispatch(context.Background(), &nats.Msg{Subject: "contracts.ingested", Data: []byte("not json")}, func(context.Context, domain.IngestionEvent) {
		called = true
	})
	if called {
		t.Fatalf("malformed payload must not be delivered")
	}
}

func TestDispatchStopsAfterCancel(t *testing.T) {
	bus := &Bus{subject: "contracts.ingested", replica: "replica-b"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	bus.dispatch(ctx, &nats.Msg{Data: []byte(`{"contract_id":"x"}`)}, func(context.Context, domain.IngestionEvent) { called = true })
	if called {
		t.Fatalf("cancelled subscriber must not deliver")
	}
}

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		err  error
		want resilience.ErrorClassification
	}{
		{err: fmt.Errorf("nats publish: %w", nats.ErrConnectionReconnecting), want: resilience.Transient},
		{err: nats.ErrNoServers, want: resilience.Transient},
		{err: nats.ErrMaxPayload, want: resilience.Rejected},
		{err: context.Canceled, want: resilience.Rejected},
		{err: nats.ErrInvalidMsg, want: resilience.Permanent},
	}
	for _, tc := range cases {
		if got := classifyNATSError(tc.err); got != tc.want {
			t.Fatalf("classifyNATSError(%v) = %+v, want %+v", tc.err, got, tc.want)
		}
	}
}

func TestPublishFailureIsTemporaryOnlyWhenRetryable(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrTimeout); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("timeout should be temporary, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(nats.ErrMaxPayload); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("oversized event must not be temporary, got %v", err)
	}
}
