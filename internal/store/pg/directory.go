package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mopesa.org/internal/directory"
	"mopesa.org/internal/ids"
	"mopesa.org/internal/ledger"
	"mopesa.org/internal/money"
)

var _ directory.Store = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, u directory.User) (directory.User, error) {
	u.ID = ids.New()
	u.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, phone_number, full_name, gender, date_of_birth, kyc_status, created_at)
		values ($1, $2, $3, nullif($4, ''), $5, $6, $7)
	`, u.ID, u.PhoneNumber, u.FullName, u.Gender, u.DateOfBirth, u.KYCStatus, u.CreatedAt)
	if isUniqueViolation(err) {
		return directory.User{}, directory.ErrPhoneTaken
	}
	if err != nil {
		return directory.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) UserByPhone(ctx context.Context, phone string) (directory.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` where phone_number = $1`, phone))
}

func (s *Store) UserByID(ctx context.Context, id string) (directory.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+` where id = $1`, id))
}

const userSelect = `
	select id, phone_number, full_name, coalesce(gender, ''), date_of_birth, kyc_status, created_at
	from users`

func (s *Store) scanUser(row *sql.Row) (directory.User, error) {
	var (
		u   directory.User
		dob sql.NullTime
	)
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.FullName, &u.Gender, &dob, &u.KYCStatus, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, directory.ErrUserNotFound
	}
	if err != nil {
		return directory.User{}, mapError(err)
	}
	if dob.Valid {
		t := dob.Time
		u.DateOfBirth = &t
	}
	return u, nil
}

func (s *Store) ActiveAgentByCode(ctx context.Context, code string) (directory.Agent, error) {
	var a directory.Agent
	err := s.db.QueryRowContext(ctx, `
		select id, code, name, status, float_account_id
		from agents where code = $1 and status = $2
	`, code, directory.AgentActive).Scan(&a.ID, &a.Code, &a.Name, &a.Status, &a.FloatAccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Agent{}, directory.ErrAgentNotFound
	}
	if err != nil {
		return directory.Agent{}, mapError(err)
	}
	return a, nil
}

func (s *Store) CategoryByCode(ctx context.Context, code string) (directory.Category, error) {
	var c directory.Category
	err := s.db.QueryRowContext(ctx, `
		select id, code, name, coalesce(description, '')
		from merchant_categories where code = $1
	`, code).Scan(&c.ID, &c.Code, &c.Name, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Category{}, directory.ErrCategoryNotFound
	}
	if err != nil {
		return directory.Category{}, mapError(err)
	}
	return c, nil
}

func (s *Store) MerchantByAccount(ctx context.Context, accountID string) (directory.Merchant, error) {
	var m directory.Merchant
	err := s.db.QueryRowContext(ctx, `
		select p.account_id, p.user_id, p.business_name, u.phone_number,
		       c.id, c.code, c.name, coalesce(c.description, '')
		from merchant_profiles p
		join users u on u.id = p.user_id
		join merchant_categories c on c.id = p.category_id
		where p.account_id = $1
	`, accountID).Scan(&m.AccountID, &m.UserID, &m.BusinessName, &m.PhoneNumber,
		&m.Category.ID, &m.Category.Code, &m.Category.Name, &m.Category.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Merchant{}, directory.ErrMerchantNotFound
	}
	if err != nil {
		return directory.Merchant{}, mapError(err)
	}
	return m, nil
}

// CreateMerchant creates the MERCHANT account and its profile in one
// transaction. One merchant account per user.
func (s *Store) CreateMerchant(ctx context.Context, userID, businessName string, cat directory.Category) (directory.Merchant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return directory.Merchant{}, mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, `
		select id from accounts where user_id = $1 and type = $2
	`, userID, string(ledger.TypeMerchant)).Scan(&existing)
	if err == nil {
		return directory.Merchant{}, directory.ErrMerchantExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return directory.Merchant{}, mapError(err)
	}

	accountID := ids.New()
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		insert into accounts (id, user_id, type, currency, created_at)
		values ($1, $2, $3, $4, $5)
	`, accountID, userID, string(ledger.TypeMerchant), money.Currency, now); err != nil {
		if isUniqueViolation(err) {
			return directory.Merchant{}, directory.ErrMerchantExists
		}
		return directory.Merchant{}, mapError(err)
	}
	if _, err := tx.ExecContext(ctx, `
		insert into merchant_profiles (account_id, user_id, business_name, category_id, created_at)
		values ($1, $2, $3, $4, $5)
	`, accountID, userID, businessName, cat.ID, now); err != nil {
		return directory.Merchant{}, mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return directory.Merchant{}, mapError(err)
	}

	u, err := s.UserByID(ctx, userID)
	if err != nil {
		return directory.Merchant{}, err
	}
	return directory.Merchant{
		AccountID:    accountID,
		UserID:       userID,
		BusinessName: businessName,
		PhoneNumber:  u.PhoneNumber,
		Category:     cat,
	}, nil
}
