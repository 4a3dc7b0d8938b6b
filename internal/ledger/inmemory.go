package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"mopesa.org/internal/ids"
	"mopesa.org/internal/money"
)

// InMemory implements Store and Registry with in-process locking. It backs
// unit and handler tests; production runs against the Postgres store.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	txs      map[string]Transaction
	entries  []memEntry
	idem     map[string]Applied // external ref -> first commit
}

type memEntry struct {
	seq       int
	txID      string
	accountID string
	amount    money.Amount
	createdAt time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[string]Account),
		txs:      make(map[string]Transaction),
		idem:     make(map[string]Applied),
	}
}

var _ Store = (*InMemory)(nil)
var _ Registry = (*InMemory)(nil)

// AddAccount registers an account directly; used for system and merchant
// accounts that are not created through the pocket flow.
func (s *InMemory) AddAccount(userID string, t AccountType) Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(userID, t)
}

func (s *InMemory) addAccountLocked(userID string, t AccountType) Account {
	acc := Account{
		ID:        ids.New(),
		UserID:    userID,
		Type:      t,
		Currency:  money.Currency,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[acc.ID] = acc
	return acc
}

func (s *InMemory) GetBalance(ctx context.Context, accountID string) (money.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.accounts[accountID]; !ok {
		return money.Zero(), ErrAccountNotFound
	}
	return s.balanceLocked(accountID), nil
}

func (s *InMemory) balanceLocked(accountID string) money.Amount {
	var sum money.Amount
	for _, e := range s.entries {
		if e.accountID == accountID {
			sum = sum.Add(e.amount)
		}
	}
	return sum
}

func (s *InMemory) ApplyPostings(ctx context.Context, in ApplyInput) (Applied, error) {
	if err := CheckBalanced(in.Postings); err != nil {
		return Applied{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ExternalRef != "" {
		if prior, ok := s.idem[in.ExternalRef]; ok {
			prior.Replayed = true
			return prior, nil
		}
	}

	for _, p := range in.Postings {
		if _, ok := s.accounts[p.AccountID]; !ok {
			return Applied{}, ErrAccountNotFound
		}
	}

	// Reject any commit that would leave a non-exempt account negative.
	after := make(map[string]money.Amount, len(in.Postings))
	for _, p := range in.Postings {
		if _, ok := after[p.AccountID]; !ok {
			after[p.AccountID] = s.balanceLocked(p.AccountID)
		}
		after[p.AccountID] = after[p.AccountID].Add(p.Amount)
	}
	for id, bal := range after {
		if bal.IsNegative() && s.accounts[id].Type != TypeSystemCash {
			return Applied{}, ErrInsufficientBalance
		}
	}

	now := time.Now().UTC()
	tx := Transaction{
		ID:          ids.New(),
		Type:        in.Type,
		Status:      StatusCompleted,
		ExternalRef: in.ExternalRef,
		Metadata:    copyMeta(in.Metadata),
		CreatedAt:   now,
		CompletedAt: now,
	}
	s.txs[tx.ID] = tx
	for _, p := range in.Postings {
		s.entries = append(s.entries, memEntry{
			seq:       len(s.entries),
			txID:      tx.ID,
			accountID: p.AccountID,
			amount:    p.Amount,
			createdAt: now,
		})
	}

	applied := Applied{Transaction: tx, Balances: after}
	if in.ExternalRef != "" {
		s.idem[in.ExternalRef] = applied
	}
	return applied, nil
}

func (s *InMemory) History(ctx context.Context, q HistoryQuery) ([]HistoryItem, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.accounts[q.AccountID]; !ok {
		return nil, ErrAccountNotFound
	}

	var matched []memEntry
	for _, e := range s.entries {
		if e.accountID != q.AccountID {
			continue
		}
		if !q.From.IsZero() && e.createdAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.createdAt.After(q.To) {
			continue
		}
		if q.Type != "" && s.txs[e.txID].Type != q.Type {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].createdAt.Equal(matched[j].createdAt) {
			return matched[i].createdAt.After(matched[j].createdAt)
		}
		return matched[i].seq > matched[j].seq
	})

	if offset >= len(matched) {
		return []HistoryItem{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	items := make([]HistoryItem, 0, len(matched))
	for _, e := range matched {
		tx := s.txs[e.txID]
		items = append(items, HistoryItem{
			TransactionID: tx.ID,
			Type:          tx.Type,
			Status:        tx.Status,
			Amount:        e.amount,
			Currency:      money.Currency,
			CreatedAt:     tx.CreatedAt,
			Metadata:      copyMeta(tx.Metadata),
		})
	}
	return items, nil
}

func (s *InMemory) GetOrCreateMain(ctx context.Context, userID string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.UserID == userID && acc.Type == TypeMain {
			return acc, nil
		}
	}
	return s.addAccountLocked(userID, TypeMain), nil
}

func (s *InMemory) CreatePocket(ctx context.Context, userID string, t AccountType) (Account, error) {
	if !IsPocket(t) {
		return Account{}, ErrDuplicatePocket
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.UserID == userID && acc.Type == t {
			return Account{}, ErrDuplicatePocket
		}
	}
	return s.addAccountLocked(userID, t), nil
}

func (s *InMemory) GetOwned(ctx context.Context, accountID, userID string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok || acc.UserID != userID {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (s *InMemory) ListByUser(ctx context.Context, userID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, acc := range s.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyMeta(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
