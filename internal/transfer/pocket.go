package transfer

import (
	"context"
	"fmt"

	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
)

type PocketTransferInput struct {
	FromUserID     string       `json:"-"`
	FromAccountID  string       `json:"fromAccountId"`
	ToAccountID    string       `json:"toAccountId"`
	Amount         money.Amount `json:"amount"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
}

type PocketTransferResult struct {
	TransactionID string       `json:"transactionId"`
	FromAccountID string       `json:"fromAccountId"`
	ToAccountID   string       `json:"toAccountId"`
	Amount        money.Amount `json:"amount"`
}

// PocketTransfer moves money between two pockets of the same user, e.g.
// MAIN -> SAVINGS. Both accounts must belong to the caller; a foreign
// account id reports as not found.
func (s *Service) PocketTransfer(ctx context.Context, in PocketTransferInput) (PocketTransferResult, error) {
	if err := checkAmount(in.Amount); err != nil {
		return PocketTransferResult{}, err
	}
	if in.FromAccountID == in.ToAccountID {
		return PocketTransferResult{}, fmt.Errorf("%w: source and destination must differ", ledger.ErrSelfTransfer)
	}

	from, err := s.registry.GetOwned(ctx, in.FromAccountID, in.FromUserID)
	if err != nil {
		return PocketTransferResult{}, err
	}
	to, err := s.registry.GetOwned(ctx, in.ToAccountID, in.FromUserID)
	if err != nil {
		return PocketTransferResult{}, err
	}

	applied, err := s.store.ApplyPostings(ctx, ledger.ApplyInput{
		Type:        ledger.TxPocketTransfer,
		ExternalRef: in.IdempotencyKey,
		Metadata: map[string]string{
			"fromType": string(from.Type),
			"toType":   string(to.Type),
		},
		Postings: []ledger.Posting{
			{AccountID: from.ID, Amount: in.Amount.Neg()},
			{AccountID: to.ID, Amount: in.Amount},
		},
	})
	if err != nil {
		return PocketTransferResult{}, err
	}

	s.committed(ctx, applied, in.Amount, from.ID, to.ID, map[string]string{
		"from_type": string(from.Type),
		"to_type":   string(to.Type),
	})

	return PocketTransferResult{
		TransactionID: applied.Transaction.ID,
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        in.Amount,
	}, nil
}
