// Package history serves account statements. The ownership check runs
// before the journal scan, and a foreign account id is reported exactly
// like a missing one.
package history

import (
	"context"
	"fmt"
	"time"

	"mopesa.org/internal/ledger"
)

type Service struct {
	registry ledger.Registry
	store    ledger.Store
}

func NewService(registry ledger.Registry, store ledger.Store) *Service {
	return &Service{registry: registry, store: store}
}

type Query struct {
	AccountID string
	UserID    string
	FromDate  string // RFC3339 or YYYY-MM-DD
	ToDate    string
	Type      string
	Limit     int
	Offset    int
}

type Result struct {
	AccountID    string               `json:"accountId"`
	From         string               `json:"from,omitempty"`
	To           string               `json:"to,omitempty"`
	Count        int                  `json:"count"`
	Transactions []ledger.HistoryItem `json:"transactions"`
}

var ErrBadFilter = fmt.Errorf("invalid history filter")

// Get returns the account statement for an account the requesting user owns.
func (s *Service) Get(ctx context.Context, q Query) (Result, error) {
	acc, err := s.registry.GetOwned(ctx, q.AccountID, q.UserID)
	if err != nil {
		return Result{}, err
	}

	var from, to time.Time
	if q.FromDate != "" {
		if from, err = parseDate(q.FromDate); err != nil {
			return Result{}, fmt.Errorf("%w: fromDate: %v", ErrBadFilter, err)
		}
	}
	if q.ToDate != "" {
		if to, err = parseDate(q.ToDate); err != nil {
			return Result{}, fmt.Errorf("%w: toDate: %v", ErrBadFilter, err)
		}
	}
	var txType ledger.TransactionType
	if q.Type != "" {
		txType = ledger.TransactionType(q.Type)
		if !ledger.ValidTransactionType(txType) {
			return Result{}, fmt.Errorf("%w: unknown type %q", ErrBadFilter, q.Type)
		}
	}
	if q.Offset < 0 {
		return Result{}, fmt.Errorf("%w: offset must be >= 0", ErrBadFilter)
	}

	items, err := s.store.History(ctx, ledger.HistoryQuery{
		AccountID: acc.ID,
		From:      from,
		To:        to,
		Type:      txType,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		return Result{}, err
	}
	if items == nil {
		items = []ledger.HistoryItem{}
	}

	res := Result{
		AccountID:    acc.ID,
		Count:        len(items),
		Transactions: items,
	}
	if !from.IsZero() {
		res.From = from.UTC().Format(time.RFC3339)
	}
	if !to.IsZero() {
		res.To = to.UTC().Format(time.RFC3339)
	}
	return res, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
