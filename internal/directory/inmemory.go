package directory

import (
	"context"
	"sync"
	"time"

	"mopesa.org/internal/ids"
	"mopesa.org/internal/ledger"
)

// InMemory implements Store for tests, placing merchant and agent float
// accounts into an in-memory ledger.
type InMemory struct {
	mu         sync.RWMutex
	ledger     *ledger.InMemory
	users      map[string]User // id -> user
	byPhone    map[string]string
	agents     map[string]Agent // code -> agent
	categories map[string]Category
	merchants  map[string]Merchant // account id -> merchant
}

func NewInMemory(l *ledger.InMemory) *InMemory {
	return &InMemory{
		ledger:     l,
		users:      make(map[string]User),
		byPhone:    make(map[string]string),
		agents:     make(map[string]Agent),
		categories: make(map[string]Category),
		merchants:  make(map[string]Merchant),
	}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) CreateUser(ctx context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byPhone[u.PhoneNumber]; taken {
		return User{}, ErrPhoneTaken
	}
	u.ID = ids.New()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	s.byPhone[u.PhoneNumber] = u.ID
	return u, nil
}

func (s *InMemory) UserByPhone(ctx context.Context, phone string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPhone[phone]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *InMemory) UserByID(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// AddAgent registers an agent with a fresh float account.
func (s *InMemory) AddAgent(code, name string) Agent {
	float := s.ledger.AddAccount("", ledger.TypeAgentFloat)
	s.mu.Lock()
	defer s.mu.Unlock()
	a := Agent{
		ID:             ids.New(),
		Code:           code,
		Name:           name,
		Status:         AgentActive,
		FloatAccountID: float.ID,
	}
	s.agents[code] = a
	return a
}

func (s *InMemory) ActiveAgentByCode(ctx context.Context, code string) (Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[code]
	if !ok || a.Status != AgentActive {
		return Agent{}, ErrAgentNotFound
	}
	return a, nil
}

// AddCategory seeds a merchant category.
func (s *InMemory) AddCategory(code, name string) Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Category{ID: ids.New(), Code: code, Name: name}
	s.categories[code] = c
	return c
}

func (s *InMemory) CategoryByCode(ctx context.Context, code string) (Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[code]
	if !ok {
		return Category{}, ErrCategoryNotFound
	}
	return c, nil
}

func (s *InMemory) MerchantByAccount(ctx context.Context, accountID string) (Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.merchants[accountID]
	if !ok {
		return Merchant{}, ErrMerchantNotFound
	}
	return m, nil
}

func (s *InMemory) CreateMerchant(ctx context.Context, userID, businessName string, cat Category) (Merchant, error) {
	s.mu.Lock()
	for _, m := range s.merchants {
		if m.UserID == userID {
			s.mu.Unlock()
			return Merchant{}, ErrMerchantExists
		}
	}
	phone := ""
	if u, ok := s.users[userID]; ok {
		phone = u.PhoneNumber
	}
	s.mu.Unlock()

	acc := s.ledger.AddAccount(userID, ledger.TypeMerchant)

	s.mu.Lock()
	defer s.mu.Unlock()
	m := Merchant{
		AccountID:    acc.ID,
		UserID:       userID,
		BusinessName: businessName,
		PhoneNumber:  phone,
		Category:     cat,
	}
	s.merchants[acc.ID] = m
	return m, nil
}
