package ledger

import (
	"errors"
	"time"

	"mopesa.org/internal/money"
)

// AccountType enumerates the pockets a user can hold plus the two
// system-side account kinds that keep cash-in double-entry honest.
type AccountType string

const (
	TypeMain       AccountType = "MAIN"
	TypeSavings    AccountType = "SAVINGS"
	TypeSchoolFees AccountType = "SCHOOL_FEES"
	TypeMerchant   AccountType = "MERCHANT"
	TypeAgentFloat AccountType = "AGENT_FLOAT"
	TypeSystemCash AccountType = "SYSTEM_CASH"
)

// PocketTypes are the secondary pockets a user may create explicitly.
var PocketTypes = []AccountType{TypeSavings, TypeSchoolFees}

// IsPocket reports whether t is a user-creatable secondary pocket.
func IsPocket(t AccountType) bool {
	return t == TypeSavings || t == TypeSchoolFees
}

// TransactionType tags the economic event a transaction records.
type TransactionType string

const (
	TxCashIn         TransactionType = "CASH_IN"
	TxP2P            TransactionType = "P2P"
	TxPocketTransfer TransactionType = "POCKET_TRANSFER"
	TxMerchantPay    TransactionType = "MERCHANT_PAY"
	TxFloatIssue     TransactionType = "FLOAT_ISSUE"
)

// ValidTransactionType reports whether t names a known transaction type.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TxCashIn, TxP2P, TxPocketTransfer, TxMerchantPay, TxFloatIssue:
		return true
	}
	return false
}

// StatusCompleted is the only transaction status: transactions are created
// and completed atomically, there is no pending state.
const StatusCompleted = "COMPLETED"

// Account is a named money container. Balance is not stored on it; it is
// derived from journal entries.
type Account struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId,omitempty"` // empty for system accounts
	Type      AccountType `json:"type"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AccountBalance pairs an account with its derived balance.
type AccountBalance struct {
	Account
	Balance money.Amount `json:"balance"`
}

// Transaction is one committed economic event. Append-only: never mutated
// after commit.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Status      string            `json:"status"`
	ExternalRef string            `json:"externalRef,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt time.Time         `json:"completedAt"`
}

// Posting is one signed amount against one account, part of a balanced set.
// Positive credits the account, negative debits it.
type Posting struct {
	AccountID string
	Amount    money.Amount
}

// ApplyInput is a balanced posting set to commit as one transaction.
type ApplyInput struct {
	Type        TransactionType
	Postings    []Posting
	ExternalRef string
	Metadata    map[string]string
}

// Applied reports the committed transaction together with the post-commit
// balance of every account the posting set touched.
type Applied struct {
	Transaction Transaction
	Balances    map[string]money.Amount // account id -> balance after commit
	Replayed    bool                    // true when ExternalRef matched an earlier commit
}

// HistoryQuery filters an account statement.
type HistoryQuery struct {
	AccountID string
	From      time.Time // zero = unbounded
	To        time.Time // zero = unbounded
	Type      TransactionType
	Limit     int // capped at MaxHistoryLimit, default DefaultHistoryLimit
	Offset    int
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// HistoryItem is one transaction seen from the queried account's side:
// the amount is that account's single posting, signed.
type HistoryItem struct {
	TransactionID string            `json:"transactionId"`
	Type          TransactionType   `json:"type"`
	Status        string            `json:"status"`
	Amount        money.Amount      `json:"amount"`
	Currency      string            `json:"currency"`
	CreatedAt     time.Time         `json:"createdAt"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrUnbalancedPostings  = errors.New("postings must sum to zero")
	ErrTooFewPostings      = errors.New("a transaction needs at least two postings")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrDuplicatePocket     = errors.New("pocket of this type already exists")
	ErrSelfTransfer        = errors.New("cannot transfer to yourself")
	ErrConflict            = errors.New("concurrent update conflict")
	ErrUnavailable         = errors.New("ledger store unavailable")
)
