package transfer

import (
	"context"

	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
	"mopesa.org/internal/notify"
)

type MerchantPayInput struct {
	FromUserID        string       `json:"-"`
	MerchantAccountID string       `json:"merchantAccountId"`
	Amount            money.Amount `json:"amount"`
	IdempotencyKey    string       `json:"idempotencyKey,omitempty"`
}

type MerchantPayResult struct {
	TransactionID     string       `json:"transactionId"`
	FromAccountID     string       `json:"fromAccountId"`
	MerchantAccountID string       `json:"merchantAccountId"`
	Amount            money.Amount `json:"amount"`
	Category          string       `json:"category"`
}

// MerchantPay transfers from the caller's MAIN account to a merchant
// account. The merchant must carry a profile with a category; the category
// is stamped into the transaction metadata for analytics.
func (s *Service) MerchantPay(ctx context.Context, in MerchantPayInput) (MerchantPayResult, error) {
	if err := checkAmount(in.Amount); err != nil {
		return MerchantPayResult{}, err
	}

	merchant, err := s.dir.MerchantByAccount(ctx, in.MerchantAccountID)
	if err != nil {
		return MerchantPayResult{}, err
	}
	senderAccount, err := s.registry.GetOrCreateMain(ctx, in.FromUserID)
	if err != nil {
		return MerchantPayResult{}, err
	}

	applied, err := s.store.ApplyPostings(ctx, ledger.ApplyInput{
		Type:        ledger.TxMerchantPay,
		ExternalRef: in.IdempotencyKey,
		Metadata: map[string]string{
			"merchantAccountId": merchant.AccountID,
			"categoryCode":      merchant.Category.Code,
			"categoryName":      merchant.Category.Name,
		},
		Postings: []ledger.Posting{
			{AccountID: senderAccount.ID, Amount: in.Amount.Neg()},
			{AccountID: merchant.AccountID, Amount: in.Amount},
		},
	})
	if err != nil {
		return MerchantPayResult{}, err
	}

	s.committed(ctx, applied, in.Amount, senderAccount.ID, merchant.AccountID, map[string]string{
		"merchant_account_id": merchant.AccountID,
		"category":            merchant.Category.Code,
	})
	if merchant.PhoneNumber != "" {
		notify.Dispatch(s.notifier, s.log, notify.Message{
			Channel: "sms",
			To:      merchant.PhoneNumber,
			Body:    "Payment received: " + in.Amount.String() + " " + money.Currency + ".",
		})
	}

	return MerchantPayResult{
		TransactionID:     applied.Transaction.ID,
		FromAccountID:     senderAccount.ID,
		MerchantAccountID: merchant.AccountID,
		Amount:            in.Amount,
		Category:          merchant.Category.Code,
	}, nil
}
