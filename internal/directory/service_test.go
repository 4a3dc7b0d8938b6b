package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mopesa.org/internal/ledger"
	"mopesa.org/internal/notify"
)

func newTestService(t *testing.T) (*Service, *InMemory, *ledger.InMemory) {
	t.Helper()
	l := ledger.NewInMemory()
	store := NewInMemory(l)
	svc := NewService(store, l, &notify.Logged{Log: zap.NewNop()}, zap.NewNop())
	return svc, store, l
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "0781234567", NormalizePhone(" 078 123 4567 "))
	assert.Equal(t, "+250781234567", NormalizePhone("+250\t781 234 567"))
}

func TestRegisterCreatesUserAndMainAccount(t *testing.T) {
	svc, _, l := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{
		PhoneNumber: "078 123 4567",
		FullName:    "Alice Uwase",
		DateOfBirth: "1994-03-12",
	})
	require.NoError(t, err)
	assert.Equal(t, "0781234567", res.User.PhoneNumber)
	assert.Equal(t, KYCPending, res.User.KYCStatus)
	require.NotEmpty(t, res.MainAccountID)

	// MAIN account really exists and is owned by the new user.
	acc, err := l.GetOwned(ctx, res.MainAccountID, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TypeMain, acc.Type)
}

func TestRegisterDuplicatePhone(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{PhoneNumber: "0781234567", FullName: "Alice"})
	require.NoError(t, err)

	// Same number with different spacing is still a duplicate.
	_, err = svc.Register(ctx, RegisterInput{PhoneNumber: "078 123 4567", FullName: "Mallory"})
	assert.ErrorIs(t, err, ErrPhoneTaken)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{PhoneNumber: "123", FullName: "Short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterInput{PhoneNumber: "0781234567"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterInput{
		PhoneNumber: "0781234567",
		FullName:    "Alice",
		DateOfBirth: "12/03/1994",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOnboardMerchant(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.AddCategory("GROCERIES", "Groceries")

	res, err := svc.OnboardMerchant(ctx, OnboardMerchantInput{
		PhoneNumber:  "0788000001",
		BusinessName: "Kimironko Market",
		CategoryCode: "GROCERIES",
	})
	require.NoError(t, err)
	assert.Equal(t, "GROCERIES", res.CategoryCode)

	m, err := store.MerchantByAccount(ctx, res.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "Kimironko Market", m.BusinessName)
	assert.Equal(t, "Groceries", m.Category.Name)

	// One merchant account per user.
	_, err = svc.OnboardMerchant(ctx, OnboardMerchantInput{
		PhoneNumber:  "0788000001",
		BusinessName: "Kimironko Market Again",
		CategoryCode: "GROCERIES",
	})
	assert.ErrorIs(t, err, ErrMerchantExists)
}

func TestOnboardMerchantUnknownCategory(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.OnboardMerchant(context.Background(), OnboardMerchantInput{
		PhoneNumber:  "0788000002",
		BusinessName: "Nowhere",
		CategoryCode: "NOPE",
	})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}
