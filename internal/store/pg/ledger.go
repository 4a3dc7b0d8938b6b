package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"mopesa.org/internal/ids"
	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
)

var _ ledger.Store = (*Store)(nil)

func (s *Store) GetBalance(ctx context.Context, accountID string) (money.Amount, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		select coalesce(sum(e.amount), 0)
		from accounts a
		left join journal_entries e on e.account_id = a.id
		where a.id = $1
		group by a.id
	`, accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return money.Zero(), ledger.ErrAccountNotFound
	}
	if err != nil {
		return money.Zero(), mapError(err)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return money.Zero(), fmt.Errorf("decode balance: %w", err)
	}
	return money.FromDecimal(d), nil
}

// ApplyPostings commits one balanced posting set atomically. The
// non-negative-balance check runs on the post-insert sums inside the same
// SERIALIZABLE transaction, so a concurrent debit can never slip between
// check and commit; the loser of a serialization conflict retries.
func (s *Store) ApplyPostings(ctx context.Context, in ledger.ApplyInput) (ledger.Applied, error) {
	if err := ledger.CheckBalanced(in.Postings); err != nil {
		return ledger.Applied{}, err
	}

	var lastErr error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		applied, err := s.applyOnce(ctx, in)
		if err == nil {
			return applied, nil
		}
		// A concurrent request with the same external ref may have landed
		// first; the next attempt resolves it through the replay lookup.
		if isSerializationFailure(err) || (isUniqueViolation(err) && in.ExternalRef != "") {
			lastErr = err
			continue
		}
		return ledger.Applied{}, mapError(err)
	}
	return ledger.Applied{}, fmt.Errorf("%w: %v", ledger.ErrConflict, lastErr)
}

func (s *Store) applyOnce(ctx context.Context, in ledger.ApplyInput) (ledger.Applied, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return ledger.Applied{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if in.ExternalRef != "" {
		replay, found, err := s.lookupByExternalRef(ctx, tx, in.ExternalRef)
		if err != nil {
			return ledger.Applied{}, err
		}
		if found {
			return replay, nil
		}
	}

	accountIDs := make([]string, 0, len(in.Postings))
	for _, p := range in.Postings {
		accountIDs = append(accountIDs, p.AccountID)
	}
	locked := sortedUnique(accountIDs)
	types := make(map[string]ledger.AccountType, len(locked))
	for _, id := range locked {
		var t string
		err := tx.QueryRowContext(ctx,
			`select type from accounts where id = $1 for update`, id).Scan(&t)
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Applied{}, ledger.ErrAccountNotFound
		}
		if err != nil {
			return ledger.Applied{}, err
		}
		types[id] = ledger.AccountType(t)
	}

	now := time.Now().UTC()
	txn := ledger.Transaction{
		ID:          ids.New(),
		Type:        in.Type,
		Status:      ledger.StatusCompleted,
		ExternalRef: in.ExternalRef,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		CompletedAt: now,
	}
	meta, err := json.Marshal(in.Metadata)
	if err != nil {
		return ledger.Applied{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into transactions (id, type, status, external_ref, metadata, created_at, completed_at)
		values ($1, $2, $3, nullif($4, ''), $5, $6, $7)
	`, txn.ID, string(txn.Type), txn.Status, in.ExternalRef, meta, now, now); err != nil {
		return ledger.Applied{}, err
	}

	for _, p := range in.Postings {
		if _, err := tx.ExecContext(ctx, `
			insert into journal_entries (id, transaction_id, account_id, amount, currency, created_at)
			values ($1, $2, $3, $4, $5, $6)
		`, ids.New(), txn.ID, p.AccountID, p.Amount.String(), money.Currency, now); err != nil {
			return ledger.Applied{}, err
		}
	}

	balances := make(map[string]money.Amount, len(locked))
	for _, id := range locked {
		var raw string
		if err := tx.QueryRowContext(ctx, `
			select coalesce(sum(amount), 0) from journal_entries where account_id = $1
		`, id).Scan(&raw); err != nil {
			return ledger.Applied{}, err
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return ledger.Applied{}, fmt.Errorf("decode balance: %w", err)
		}
		bal := money.FromDecimal(d)
		if bal.IsNegative() && types[id] != ledger.TypeSystemCash {
			return ledger.Applied{}, ledger.ErrInsufficientBalance
		}
		balances[id] = bal
	}

	if err := tx.Commit(); err != nil {
		return ledger.Applied{}, err
	}
	return ledger.Applied{Transaction: txn, Balances: balances}, nil
}

// lookupByExternalRef resolves a retried request to its original commit.
func (s *Store) lookupByExternalRef(ctx context.Context, tx *sql.Tx, ref string) (ledger.Applied, bool, error) {
	var (
		txn  ledger.Transaction
		meta []byte
	)
	err := tx.QueryRowContext(ctx, `
		select id, type, status, coalesce(external_ref, ''), coalesce(metadata, '{}'), created_at, completed_at
		from transactions where external_ref = $1
	`, ref).Scan(&txn.ID, &txn.Type, &txn.Status, &txn.ExternalRef, &meta, &txn.CreatedAt, &txn.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Applied{}, false, nil
	}
	if err != nil {
		return ledger.Applied{}, false, err
	}
	if err := json.Unmarshal(meta, &txn.Metadata); err != nil {
		return ledger.Applied{}, false, err
	}

	rows, err := tx.QueryContext(ctx, `
		select e.account_id,
		       (select coalesce(sum(amount), 0) from journal_entries where account_id = e.account_id)
		from journal_entries e
		where e.transaction_id = $1
	`, txn.ID)
	if err != nil {
		return ledger.Applied{}, false, err
	}
	defer rows.Close()

	balances := map[string]money.Amount{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return ledger.Applied{}, false, err
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return ledger.Applied{}, false, err
		}
		balances[id] = money.FromDecimal(d)
	}
	if err := rows.Err(); err != nil {
		return ledger.Applied{}, false, err
	}
	return ledger.Applied{Transaction: txn, Balances: balances, Replayed: true}, true, nil
}

func (s *Store) History(ctx context.Context, q ledger.HistoryQuery) ([]ledger.HistoryItem, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = ledger.DefaultHistoryLimit
	}
	if limit > ledger.MaxHistoryLimit {
		limit = ledger.MaxHistoryLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	// Built dynamically so the (account_id, created_at) index drives the
	// common unfiltered scan.
	query := `
		select t.id, t.type, t.status, e.amount, e.currency, t.created_at, coalesce(t.metadata, '{}')
		from journal_entries e
		join transactions t on t.id = e.transaction_id
		where e.account_id = $1`
	args := []any{q.AccountID}
	n := 2
	if !q.From.IsZero() {
		query += ` and e.created_at >= $` + strconv.Itoa(n)
		args = append(args, q.From)
		n++
	}
	if !q.To.IsZero() {
		query += ` and e.created_at <= $` + strconv.Itoa(n)
		args = append(args, q.To)
		n++
	}
	if q.Type != "" {
		query += ` and t.type = $` + strconv.Itoa(n)
		args = append(args, string(q.Type))
		n++
	}
	query += ` order by e.created_at desc limit $` + strconv.Itoa(n) + ` offset $` + strconv.Itoa(n+1)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	items := []ledger.HistoryItem{}
	for rows.Next() {
		var (
			it   ledger.HistoryItem
			raw  string
			meta []byte
		)
		if err := rows.Scan(&it.TransactionID, &it.Type, &it.Status, &raw, &it.Currency, &it.CreatedAt, &meta); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode amount: %w", err)
		}
		it.Amount = money.FromDecimal(d)
		if err := json.Unmarshal(meta, &it.Metadata); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
