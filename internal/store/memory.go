package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ishantswami13-crypto/vantro-pay/internal/audit"
	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
)

// Memory is an in-process Store used by tests and by the API when no
// DATABASE_URL is configured. A single mutex serializes every write, which
// gives RecordTransfer the same all-or-nothing behaviour as the Postgres store.
type Memory struct {
	mu      sync.RWMutex
	users   []*domain.User
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
	txs     []domain.Transaction
	audits  []audit.Entry
}

func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (m *Memory) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[u.Email]; ok {
		return fmt.Errorf("user %s: %w", u.Email, domain.ErrConflict)
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := cloneUser(u)
	m.users = append(m.users, cp)
	m.byID[cp.ID] = cp
	m.byEmail[cp.Email] = cp
	return nil
}

func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (m *Memory) ListUsers(_ context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *cloneUser(u))
	}
	return out, nil
}

func (m *Memory) AddFriend(_ context.Context, userID uuid.UUID, f domain.Friend) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return false, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	if u.HasFriend(f.Email) {
		return false, nil
	}
	u.Friends = append(u.Friends, f)
	return true, nil
}

func (m *Memory) AdjustBalance(_ context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	u.Balance = u.Balance.Add(delta)
	return u.Balance, nil
}

func (m *Memory) RecordTransfer(_ context.Context, rec domain.TransferRecord) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sender, ok := m.byID[rec.SenderID]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("sender %s: %w", rec.SenderID, domain.ErrNotFound)
	}
	recipient, ok := m.byID[rec.RecipientID]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("recipient %s: %w", rec.Recipient, domain.ErrNotFound)
	}

	if rec.DenyOverdraft && sender.Balance.Sub(rec.Amount).IsNegative() {
		return domain.Transaction{}, fmt.Errorf("sender %s: %w", rec.Sender, domain.ErrInsufficientFunds)
	}

	t := domain.Transaction{
		ID:        uuid.New(),
		Sender:    rec.Sender,
		Recipient: rec.Recipient,
		TimeSent:  rec.TimeSent,
		Amount:    rec.Amount,
	}
	m.txs = append(m.txs, t)
	sender.Balance = sender.Balance.Sub(rec.Amount)
	recipient.Balance = recipient.Balance.Add(rec.Amount)
	return t, nil
}

func (m *Memory) ListTransactions(_ context.Context, f TxFilter) ([]domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(m.txs))
	for _, t := range m.txs {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) Stats(_ context.Context, latest int) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		UsersTotal:        int64(len(m.users)),
		TransactionsTotal: int64(len(m.txs)),
	}

	users := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *cloneUser(u))
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	if len(users) > latest {
		users = users[:latest]
	}
	s.LatestUsers = users

	for i := len(m.txs) - 1; i >= 0 && len(s.LatestTransactions) < latest; i-- {
		s.LatestTransactions = append(s.LatestTransactions, m.txs[i])
	}
	return s, nil
}

func (m *Memory) WriteAudit(_ context.Context, e audit.Entry) error {
	if strings.TrimSpace(e.Action) == "" {
		return fmt.Errorf("audit action: %w", domain.ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, e)
	return nil
}

// Audits returns a copy of the recorded audit entries.
func (m *Memory) Audits() []audit.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]audit.Entry(nil), m.audits...)
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	cp.Friends = make([]domain.Friend, len(u.Friends))
	copy(cp.Friends, u.Friends)
	return &cp
}
