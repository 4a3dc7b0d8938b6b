// Package directory holds the people side of the wallet: users keyed by
// phone number, cash-in agents, and merchant profiles. It resolves the
// parties of a transfer; the ledger owns the money.
package directory

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
)

type User struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phoneNumber"`
	FullName    string     `json:"fullName"`
	Gender      string     `json:"gender,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	KYCStatus   string     `json:"kycStatus"`
	CreatedAt   time.Time  `json:"createdAt"`
}

const (
	KYCPending  = "PENDING"
	KYCVerified = "VERIFIED"
)

// Agent is a cash-in point. Its float account funds every deposit it takes.
type Agent struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	FloatAccountID string `json:"floatAccountId"`
}

const AgentActive = "ACTIVE"

type Category struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Merchant joins a MERCHANT account with its profile and category.
type Merchant struct {
	AccountID    string   `json:"accountId"`
	UserID       string   `json:"userId"`
	BusinessName string   `json:"businessName"`
	PhoneNumber  string   `json:"phoneNumber"`
	Category     Category `json:"category"`
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrPhoneTaken       = errors.New("phone number already registered")
	ErrAgentNotFound    = errors.New("agent not found or inactive")
	ErrCategoryNotFound = errors.New("merchant category not found")
	ErrMerchantNotFound = errors.New("merchant account not found")
	ErrMerchantExists   = errors.New("user already has a merchant account")
)

// Store persists users, agents and merchant data.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByPhone(ctx context.Context, phone string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)

	ActiveAgentByCode(ctx context.Context, code string) (Agent, error)

	CategoryByCode(ctx context.Context, code string) (Category, error)
	// MerchantByAccount resolves a MERCHANT account to its profile and
	// category; accounts without a profile are ErrMerchantNotFound.
	MerchantByAccount(ctx context.Context, accountID string) (Merchant, error)
	// CreateMerchant creates the MERCHANT account and its profile
	// atomically for an existing user.
	CreateMerchant(ctx context.Context, userID, businessName string, cat Category) (Merchant, error)
}

// NormalizePhone strips all whitespace so "078 123 4567" and "0781234567"
// resolve to the same user.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
