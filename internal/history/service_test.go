package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
)

func seedStatement(t *testing.T) (*Service, *ledger.InMemory, ledger.Account) {
	t.Helper()
	ctx := context.Background()
	l := ledger.NewInMemory()
	main, err := l.GetOrCreateMain(ctx, "u1")
	require.NoError(t, err)
	other := l.AddAccount("u2", ledger.TypeMain)
	sink := l.AddAccount("", ledger.TypeSystemCash)

	_, err = l.ApplyPostings(ctx, ledger.ApplyInput{
		Type: ledger.TxCashIn,
		Postings: []ledger.Posting{
			{AccountID: sink.ID, Amount: money.MustNew("-5000")},
			{AccountID: main.ID, Amount: money.MustNew("5000")},
		},
	})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = l.ApplyPostings(ctx, ledger.ApplyInput{
			Type: ledger.TxP2P,
			Postings: []ledger.Posting{
				{AccountID: main.ID, Amount: money.MustNew("-100")},
				{AccountID: other.ID, Amount: money.MustNew("100")},
			},
		})
		require.NoError(t, err)
	}
	return NewService(l, l), l, main
}

func TestGetStatement(t *testing.T) {
	svc, _, main := seedStatement(t)

	res, err := svc.Get(context.Background(), Query{AccountID: main.ID, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, main.ID, res.AccountID)
	assert.Equal(t, 3, res.Count)

	// Newest first; the two debits are signed from this account's side.
	assert.Equal(t, ledger.TxP2P, res.Transactions[0].Type)
	assert.Equal(t, "-100", res.Transactions[0].Amount.String())
	assert.Equal(t, ledger.TxCashIn, res.Transactions[2].Type)
	assert.Equal(t, "5000", res.Transactions[2].Amount.String())
}

func TestOwnershipIndistinguishableFromMissing(t *testing.T) {
	svc, _, main := seedStatement(t)

	_, err := svc.Get(context.Background(), Query{AccountID: main.ID, UserID: "u2"})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	_, err = svc.Get(context.Background(), Query{AccountID: "ghost", UserID: "u1"})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestFilters(t *testing.T) {
	svc, _, main := seedStatement(t)
	ctx := context.Background()

	byType, err := svc.Get(ctx, Query{AccountID: main.ID, UserID: "u1", Type: "P2P"})
	require.NoError(t, err)
	assert.Equal(t, 2, byType.Count)

	_, err = svc.Get(ctx, Query{AccountID: main.ID, UserID: "u1", Type: "WIRE"})
	assert.ErrorIs(t, err, ErrBadFilter)

	future := time.Now().Add(24 * time.Hour).Format("2006-01-02")
	none, err := svc.Get(ctx, Query{AccountID: main.ID, UserID: "u1", FromDate: future})
	require.NoError(t, err)
	assert.Equal(t, 0, none.Count)
	assert.NotEmpty(t, none.From)

	_, err = svc.Get(ctx, Query{AccountID: main.ID, UserID: "u1", FromDate: "31/12/2025"})
	assert.ErrorIs(t, err, ErrBadFilter)

	_, err = svc.Get(ctx, Query{AccountID: main.ID, UserID: "u1", Offset: -1})
	assert.ErrorIs(t, err, ErrBadFilter)

	paged, err := svc.Get(ctx, Query{AccountID: main.ID, UserID: "u1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, paged.Count)
}
