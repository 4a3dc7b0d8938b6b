package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mopesa.org/internal/ids"
	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
)

var _ ledger.Registry = (*Store)(nil)

// GetOrCreateMain returns the user's MAIN account, creating it on first use.
// Concurrent first calls race on the partial unique index; the loser's
// insert is a no-op and the re-select settles both on the same row.
func (s *Store) GetOrCreateMain(ctx context.Context, userID string) (ledger.Account, error) {
	acc, err := s.accountByUserAndType(ctx, userID, ledger.TypeMain)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		return ledger.Account{}, err
	}

	if _, err := s.db.ExecContext(ctx, `
		insert into accounts (id, user_id, type, currency, created_at)
		values ($1, $2, $3, $4, $5)
		on conflict do nothing
	`, ids.New(), userID, string(ledger.TypeMain), money.Currency, time.Now().UTC()); err != nil {
		return ledger.Account{}, mapError(err)
	}
	return s.accountByUserAndType(ctx, userID, ledger.TypeMain)
}

func (s *Store) CreatePocket(ctx context.Context, userID string, t ledger.AccountType) (ledger.Account, error) {
	if !ledger.IsPocket(t) {
		return ledger.Account{}, ledger.ErrDuplicatePocket
	}
	id := ids.New()
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		insert into accounts (id, user_id, type, currency, created_at)
		values ($1, $2, $3, $4, $5)
	`, id, userID, string(t), money.Currency, now); err != nil {
		if isUniqueViolation(err) {
			return ledger.Account{}, ledger.ErrDuplicatePocket
		}
		return ledger.Account{}, mapError(err)
	}
	return ledger.Account{ID: id, UserID: userID, Type: t, Currency: money.Currency, CreatedAt: now}, nil
}

// GetOwned fetches an account only if userID owns it. A foreign account is
// indistinguishable from a missing one.
func (s *Store) GetOwned(ctx context.Context, accountID, userID string) (ledger.Account, error) {
	var acc ledger.Account
	err := s.db.QueryRowContext(ctx, `
		select id, coalesce(user_id, ''), type, currency, created_at
		from accounts where id = $1 and user_id = $2
	`, accountID, userID).Scan(&acc.ID, &acc.UserID, &acc.Type, &acc.Currency, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, mapError(err)
	}
	return acc, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, coalesce(user_id, ''), type, currency, created_at
		from accounts where user_id = $1
		order by type, id
	`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	accs := []ledger.Account{}
	for rows.Next() {
		var acc ledger.Account
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.Type, &acc.Currency, &acc.CreatedAt); err != nil {
			return nil, err
		}
		accs = append(accs, acc)
	}
	return accs, rows.Err()
}

func (s *Store) accountByUserAndType(ctx context.Context, userID string, t ledger.AccountType) (ledger.Account, error) {
	var acc ledger.Account
	err := s.db.QueryRowContext(ctx, `
		select id, coalesce(user_id, ''), type, currency, created_at
		from accounts where user_id = $1 and type = $2
	`, userID, string(t)).Scan(&acc.ID, &acc.UserID, &acc.Type, &acc.Currency, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, mapError(err)
	}
	return acc, nil
}
