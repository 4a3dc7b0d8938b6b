// Package transfer orchestrates the four money-movement use cases: cash-in,
// peer-to-peer, pocket transfer and merchant payment. Every use case follows
// the same template: validate, resolve the parties, commit one balanced
// posting set through the ledger store, then notify out-of-band. The ledger
// store is the only component that mutates balances; sufficiency is enforced
// inside its atomic unit, never from a read taken outside it.
package transfer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mopesa.org/internal/audit"
	"mopesa.org/internal/directory"
	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
	"mopesa.org/internal/notify"
	"mopesa.org/internal/obs"
	"mopesa.org/internal/stream"
)

type Service struct {
	store    ledger.Store
	registry ledger.Registry
	dir      directory.Store
	notifier notify.Notifier
	events   *stream.Publisher
	log      *zap.Logger
}

func NewService(
	store ledger.Store,
	registry ledger.Registry,
	dir directory.Store,
	notifier notify.Notifier,
	events *stream.Publisher,
	log *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		registry: registry,
		dir:      dir,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

// checkAmount rejects zero and negative amounts before any lookup happens.
func checkAmount(a money.Amount) error {
	if !a.IsPositive() {
		return fmt.Errorf("%w: got %s", ledger.ErrInvalidAmount, a)
	}
	return nil
}

// committed handles the shared post-commit bookkeeping: metrics, audit
// trail and the transaction event stream.
func (s *Service) committed(ctx context.Context, applied ledger.Applied, amount money.Amount, fromID, toID string, auditFields map[string]string) {
	if applied.Replayed {
		audit.Event(ctx, s.log, "transfer.idempotent_replay", map[string]string{
			"transaction_id": applied.Transaction.ID,
		})
		return
	}
	obs.ObserveTransaction(string(applied.Transaction.Type), 2)
	if auditFields == nil {
		auditFields = map[string]string{}
	}
	auditFields["transaction_id"] = applied.Transaction.ID
	auditFields["amount"] = amount.String()
	audit.Event(ctx, s.log, "transfer."+string(applied.Transaction.Type), auditFields)

	s.events.Publish(ctx, stream.Event{
		TransactionID: applied.Transaction.ID,
		Type:          applied.Transaction.Type,
		Amount:        amount,
		Currency:      money.Currency,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Timestamp:     applied.Transaction.CompletedAt,
	})
}
