package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ishantswami13-crypto/vantro-pay/internal/audit"
	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
)

// Side selects which end of a transfer a ledger query matches on.
type Side int

const (
	SideAny Side = iota
	SideSent
	SideReceived
)

// TxFilter narrows ListTransactions. An empty Email matches every row.
type TxFilter struct {
	Email string
	Side  Side
}

// Stats is the admin overview payload.
type Stats struct {
	UsersTotal         int64                `json:"users_total"`
	TransactionsTotal  int64                `json:"transactions_total"`
	LatestUsers        []domain.User        `json:"latest_users"`
	LatestTransactions []domain.Transaction `json:"latest_transactions"`
}

// Store is the persistence boundary for users, friends and the ledger.
//
// Lookups return domain.ErrNotFound for missing rows. CreateUser returns
// domain.ErrConflict when the email is taken. RecordTransfer applies the ledger
// insert and both balance deltas as one unit, or none of them.
type Store interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	AddFriend(ctx context.Context, userID uuid.UUID, f domain.Friend) (bool, error)
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)

	RecordTransfer(ctx context.Context, rec domain.TransferRecord) (domain.Transaction, error)
	// ListTransactions returns matching rows in the order they were recorded.
	ListTransactions(ctx context.Context, f TxFilter) ([]domain.Transaction, error)

	Stats(ctx context.Context, latest int) (Stats, error)

	audit.Sink
}

func (f TxFilter) matches(t domain.Transaction) bool {
	if f.Email == "" {
		return true
	}
	switch f.Side {
	case SideSent:
		return t.Sender == f.Email
	case SideReceived:
		return t.Recipient == f.Email
	default:
		return t.Sender == f.Email || t.Recipient == f.Email
	}
}
