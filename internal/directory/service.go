package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mopesa.org/internal/ledger"
	"mopesa.org/internal/notify"
)

// Service handles onboarding: user registration and merchant setup.
type Service struct {
	store    Store
	registry ledger.Registry
	notifier notify.Notifier
	log      *zap.Logger
}

func NewService(store Store, registry ledger.Registry, notifier notify.Notifier, log *zap.Logger) *Service {
	return &Service{store: store, registry: registry, notifier: notifier, log: log}
}

type RegisterInput struct {
	PhoneNumber string `json:"phoneNumber"`
	FullName    string `json:"fullName"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"` // YYYY-MM-DD
}

type RegisterResult struct {
	User          User   `json:"user"`
	MainAccountID string `json:"mainAccountId"`
}

var ErrInvalidInput = errors.New("invalid input")

// Register creates a user and their MAIN wallet. Phone numbers are unique
// after normalization.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	phone := NormalizePhone(in.PhoneNumber)
	if len(phone) < 9 {
		return RegisterResult{}, fmt.Errorf("%w: phone number too short", ErrInvalidInput)
	}
	if in.FullName == "" {
		return RegisterResult{}, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}

	u := User{
		PhoneNumber: phone,
		FullName:    in.FullName,
		Gender:      in.Gender,
		KYCStatus:   KYCPending,
	}
	if in.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", in.DateOfBirth)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrInvalidInput)
		}
		u.DateOfBirth = &dob
	}

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return RegisterResult{}, err
	}
	main, err := s.registry.GetOrCreateMain(ctx, created.ID)
	if err != nil {
		return RegisterResult{}, err
	}

	notify.Dispatch(s.notifier, s.log, notify.Message{
		Channel: "sms",
		To:      phone,
		Body:    "Welcome to Mopesa. Your wallet is ready.",
	})

	return RegisterResult{User: created, MainAccountID: main.ID}, nil
}

type OnboardMerchantInput struct {
	PhoneNumber  string `json:"phoneNumber"`
	BusinessName string `json:"businessName"`
	CategoryCode string `json:"categoryCode"`
}

type OnboardMerchantResult struct {
	UserID       string `json:"userId"`
	AccountID    string `json:"accountId"`
	CategoryCode string `json:"categoryCode"`
}

// OnboardMerchant creates (or reuses) the user behind a phone number and
// attaches a MERCHANT account with a profile in the given category.
func (s *Service) OnboardMerchant(ctx context.Context, in OnboardMerchantInput) (OnboardMerchantResult, error) {
	if in.BusinessName == "" {
		return OnboardMerchantResult{}, fmt.Errorf("%w: business name is required", ErrInvalidInput)
	}
	cat, err := s.store.CategoryByCode(ctx, in.CategoryCode)
	if err != nil {
		return OnboardMerchantResult{}, err
	}

	phone := NormalizePhone(in.PhoneNumber)
	if len(phone) < 9 {
		return OnboardMerchantResult{}, fmt.Errorf("%w: phone number too short", ErrInvalidInput)
	}

	user, err := s.store.UserByPhone(ctx, phone)
	if errors.Is(err, ErrUserNotFound) {
		user, err = s.store.CreateUser(ctx, User{
			PhoneNumber: phone,
			FullName:    in.BusinessName,
			KYCStatus:   KYCPending,
		})
	}
	if err != nil {
		return OnboardMerchantResult{}, err
	}

	m, err := s.store.CreateMerchant(ctx, user.ID, in.BusinessName, cat)
	if err != nil {
		return OnboardMerchantResult{}, err
	}
	s.log.Info("merchant onboarded",
		zap.String("user_id", user.ID),
		zap.String("account_id", m.AccountID),
		zap.String("category", cat.Code),
	)
	return OnboardMerchantResult{
		UserID:       user.ID,
		AccountID:    m.AccountID,
		CategoryCode: cat.Code,
	}, nil
}
