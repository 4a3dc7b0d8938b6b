package transfer

import (
	"context"

	"mopesa.org/internal/directory"
	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
	"mopesa.org/internal/notify"
)

type CashInInput struct {
	AgentCode       string       `json:"agentCode"`
	UserPhoneNumber string       `json:"userPhoneNumber"`
	Amount          money.Amount `json:"amount"`
	IdempotencyKey  string       `json:"idempotencyKey,omitempty"`
}

type CashInResult struct {
	TransactionID string       `json:"transactionId"`
	AccountID     string       `json:"accountId"`
	Amount        money.Amount `json:"amount"`
	NewBalance    money.Amount `json:"newBalance"`
}

// CashIn credits a user's MAIN account with physical cash taken by an agent.
// The agent's float account funds the credit, keeping the posting set
// balanced: money enters the user's wallet only by leaving the agent's float.
func (s *Service) CashIn(ctx context.Context, in CashInInput) (CashInResult, error) {
	if err := checkAmount(in.Amount); err != nil {
		return CashInResult{}, err
	}

	agent, err := s.dir.ActiveAgentByCode(ctx, in.AgentCode)
	if err != nil {
		return CashInResult{}, err
	}
	user, err := s.dir.UserByPhone(ctx, directory.NormalizePhone(in.UserPhoneNumber))
	if err != nil {
		return CashInResult{}, err
	}
	account, err := s.registry.GetOrCreateMain(ctx, user.ID)
	if err != nil {
		return CashInResult{}, err
	}

	applied, err := s.store.ApplyPostings(ctx, ledger.ApplyInput{
		Type:        ledger.TxCashIn,
		ExternalRef: in.IdempotencyKey,
		Metadata: map[string]string{
			"agentId":   agent.ID,
			"agentCode": agent.Code,
		},
		Postings: []ledger.Posting{
			{AccountID: agent.FloatAccountID, Amount: in.Amount.Neg()},
			{AccountID: account.ID, Amount: in.Amount},
		},
	})
	if err != nil {
		return CashInResult{}, err
	}

	newBalance := applied.Balances[account.ID]
	s.committed(ctx, applied, in.Amount, agent.FloatAccountID, account.ID, map[string]string{
		"agent_code": agent.Code,
		"account_id": account.ID,
	})
	notify.Dispatch(s.notifier, s.log, notify.Message{
		Channel: "sms",
		To:      user.PhoneNumber,
		Body:    "You received " + in.Amount.String() + " " + money.Currency + ". New balance: " + newBalance.StringFixed() + " " + money.Currency + ".",
	})

	return CashInResult{
		TransactionID: applied.Transaction.ID,
		AccountID:     account.ID,
		Amount:        in.Amount,
		NewBalance:    newBalance,
	}, nil
}
