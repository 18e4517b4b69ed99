package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/resilience"
)

const originHeader = "Origin-Replica"

// Bus broadcasts ingestion events so every replica can drop its stale listings.
type Bus struct {
	conn     *nats.Conn
	subject  string
	replica  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string, options Options) (*Bus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("contract-intelligence"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:     conn,
		subject:  subject,
		replica:  uuid.NewString(),
		executor: options.ResilienceExecutor,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func (b *Bus) PublishContractIngested(ctx context.Context, event domain.IngestionEvent) error {
	msg, err := b.encode(event)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := b.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if b.executor != nil {
		err = b.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeContractIngested delivers events published by other replicas until ctx is done.
// Every replica subscribes on its own; there is no queue group.
func (b *Bus) SubscribeContractIngested(ctx context.Context, handler func(context.Context, domain.IngestionEvent)) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		b.dispatch(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (b *Bus) encode(event domain.IngestionEvent) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal ingestion event: %w", err)
	}
	msg := nats.NewMsg(b.subject)
	msg.Data = data
	msg.Header.Set(originHeader, b.replica)
	return msg, nil
}

func (b *Bus) dispatch(ctx context.Context, msg *nats.Msg, handler func(context.Context, domain.IngestionEvent)) {
	if ctx.Err() != nil {
		return
	}
	if msg.Header != nil && msg.Header.Get(originHeader) == b.replica {
		return
	}

	var event domain.IngestionEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Warn("ingestion_event_decode_failed", "subject", msg.Subject, "error", err)
		return
	}
	handler(ctx, event)
}
