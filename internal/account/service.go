// Package account exposes a user's pockets: list them with balances, open
// new ones, read a single balance. It composes the registry (which accounts
// exist) with the ledger store (what they hold).
package account

import (
	"context"
	"fmt"

	"mopesa.org/internal/ledger"
)

type Service struct {
	registry ledger.Registry
	store    ledger.Store
}

func NewService(registry ledger.Registry, store ledger.Store) *Service {
	return &Service{registry: registry, store: store}
}

// ListWithBalances returns the user's accounts ordered by type, each with
// its derived balance.
func (s *Service) ListWithBalances(ctx context.Context, userID string) ([]ledger.AccountBalance, error) {
	accounts, err := s.registry.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		bal, err := s.store.GetBalance(ctx, acc.ID)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: %w", acc.ID, err)
		}
		out = append(out, ledger.AccountBalance{Account: acc, Balance: bal})
	}
	return out, nil
}

// CreatePocket opens a SAVINGS or SCHOOL_FEES pocket; one of each per user.
func (s *Service) CreatePocket(ctx context.Context, userID string, t ledger.AccountType) (ledger.Account, error) {
	if !ledger.IsPocket(t) {
		return ledger.Account{}, fmt.Errorf("%w: type must be SAVINGS or SCHOOL_FEES", ledger.ErrDuplicatePocket)
	}
	return s.registry.CreatePocket(ctx, userID, t)
}

// Balance returns one owned account's balance. Ownership failures are
// reported as not-found so callers cannot probe for foreign account ids.
func (s *Service) Balance(ctx context.Context, accountID, userID string) (ledger.AccountBalance, error) {
	acc, err := s.registry.GetOwned(ctx, accountID, userID)
	if err != nil {
		return ledger.AccountBalance{}, err
	}
	bal, err := s.store.GetBalance(ctx, acc.ID)
	if err != nil {
		return ledger.AccountBalance{}, err
	}
	return ledger.AccountBalance{Account: acc, Balance: bal}, nil
}
