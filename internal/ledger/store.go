package ledger

import (
	"context"

	"mopesa.org/internal/money"
)

// Store is the journal: the only component allowed to move money.
// Implementations must make ApplyPostings atomic and isolated enough that
// the non-negative-balance check cannot race with a concurrent debit.
type Store interface {
	// GetBalance sums all journal entries for the account. An account with
	// no postings has balance zero, not an error.
	GetBalance(ctx context.Context, accountID string) (money.Amount, error)

	// ApplyPostings commits one transaction plus one journal entry per
	// posting, all-or-nothing. It rejects sets that do not sum to exactly
	// zero (ErrUnbalancedPostings), sets with fewer than two postings
	// (ErrTooFewPostings), and commits that would leave any non-exempt
	// account negative (ErrInsufficientBalance). When ExternalRef matches a
	// previously committed transaction the earlier result is returned with
	// Replayed set and nothing is written.
	ApplyPostings(ctx context.Context, in ApplyInput) (Applied, error)

	// History lists the account's journal entries joined with their
	// transactions, newest first.
	History(ctx context.Context, q HistoryQuery) ([]HistoryItem, error)
}

// Registry resolves and creates typed accounts. One account per (user, type);
// concurrent first calls must not create duplicates.
type Registry interface {
	// GetOrCreateMain returns the user's MAIN account, creating it lazily.
	GetOrCreateMain(ctx context.Context, userID string) (Account, error)

	// CreatePocket creates a SAVINGS or SCHOOL_FEES account, failing with
	// ErrDuplicatePocket when one already exists for the user.
	CreatePocket(ctx context.Context, userID string, t AccountType) (Account, error)

	// GetOwned returns the account only when it belongs to userID;
	// otherwise ErrAccountNotFound, indistinguishable from a missing id.
	GetOwned(ctx context.Context, accountID, userID string) (Account, error)

	// ListByUser returns the user's accounts ordered by type.
	ListByUser(ctx context.Context, userID string) ([]Account, error)
}

// CheckBalanced verifies the double-entry invariant for a posting set.
func CheckBalanced(postings []Posting) error {
	if len(postings) < 2 {
		return ErrTooFewPostings
	}
	var sum money.Amount
	for _, p := range postings {
		sum = sum.Add(p.Amount)
	}
	if !sum.IsZero() {
		return ErrUnbalancedPostings
	}
	return nil
}
