package transfer

import (
	"context"

	"mopesa.org/internal/directory"
	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
	"mopesa.org/internal/notify"
)

type P2PInput struct {
	FromUserID     string       `json:"-"`
	ToPhoneNumber  string       `json:"toPhoneNumber"`
	Amount         money.Amount `json:"amount"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
}

type P2PResult struct {
	TransactionID string       `json:"transactionId"`
	FromAccountID string       `json:"fromAccountId"`
	ToAccountID   string       `json:"toAccountId"`
	Amount        money.Amount `json:"amount"`
	ReceiverName  string       `json:"receiverName,omitempty"`
}

// P2P moves money between two users' MAIN accounts.
func (s *Service) P2P(ctx context.Context, in P2PInput) (P2PResult, error) {
	if err := checkAmount(in.Amount); err != nil {
		return P2PResult{}, err
	}

	recipient, err := s.dir.UserByPhone(ctx, directory.NormalizePhone(in.ToPhoneNumber))
	if err != nil {
		return P2PResult{}, err
	}
	if recipient.ID == in.FromUserID {
		return P2PResult{}, ledger.ErrSelfTransfer
	}

	senderAccount, err := s.registry.GetOrCreateMain(ctx, in.FromUserID)
	if err != nil {
		return P2PResult{}, err
	}
	receiverAccount, err := s.registry.GetOrCreateMain(ctx, recipient.ID)
	if err != nil {
		return P2PResult{}, err
	}

	applied, err := s.store.ApplyPostings(ctx, ledger.ApplyInput{
		Type:        ledger.TxP2P,
		ExternalRef: in.IdempotencyKey,
		Postings: []ledger.Posting{
			{AccountID: senderAccount.ID, Amount: in.Amount.Neg()},
			{AccountID: receiverAccount.ID, Amount: in.Amount},
		},
	})
	if err != nil {
		return P2PResult{}, err
	}

	s.committed(ctx, applied, in.Amount, senderAccount.ID, receiverAccount.ID, nil)

	sender, senderErr := s.dir.UserByID(ctx, in.FromUserID)
	senderName := "a user"
	if senderErr == nil && sender.FullName != "" {
		senderName = sender.FullName
	}
	notify.Dispatch(s.notifier, s.log, notify.Message{
		Channel: "sms",
		To:      recipient.PhoneNumber,
		Body:    "You received " + in.Amount.String() + " " + money.Currency + " from " + senderName + ".",
	})

	return P2PResult{
		TransactionID: applied.Transaction.ID,
		FromAccountID: senderAccount.ID,
		ToAccountID:   receiverAccount.ID,
		Amount:        in.Amount,
		ReceiverName:  recipient.FullName,
	}, nil
}
