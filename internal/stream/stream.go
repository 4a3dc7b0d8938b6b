// Package stream publishes transaction-completed events for downstream
// consumers (analytics, reconciliation). Publishing is post-commit and
// best-effort: a broker outage never fails a money movement.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
)

// Event describes one committed transaction.
type Event struct {
	TransactionID string                 `json:"transactionId"`
	Type          ledger.TransactionType `json:"type"`
	Amount        money.Amount           `json:"amount"`
	Currency      string                 `json:"currency"`
	FromAccountID string                 `json:"fromAccountId,omitempty"`
	ToAccountID   string                 `json:"toAccountId,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Publisher emits events to Kafka. A nil *Publisher is a no-op, so callers
// never branch on whether streaming is configured.
type Publisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewPublisher builds an async writer; completion errors go to the log.
func NewPublisher(brokers []string, topic string, log *zap.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		Async:        true,
	}
	w.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			log.Warn("transaction event publish failed",
				zap.Int("messages", len(messages)),
				zap.Error(err),
			)
		}
	}
	return &Publisher{writer: w, log: log}
}

// Publish enqueues the event. Errors are logged, never returned: the ledger
// commit already happened and must not appear to fail.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if p == nil || p.writer == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Warn("transaction event marshal failed", zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(evt.TransactionID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("transaction event enqueue failed",
			zap.String("transaction_id", evt.TransactionID),
			zap.Error(err),
		)
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
