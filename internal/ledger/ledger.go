package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/store"
)

type Service struct {
	Store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{Store: st}
}

type Summary struct {
	Sent     decimal.Decimal `json:"sent"`
	Received decimal.Decimal `json:"received"`
	Net      decimal.Decimal `json:"net"`
	Count    int             `json:"count"`
}

// ListFor returns every row where email is sender or recipient, tagged with
// Sent and ordered newest first.
func (s *Service) ListFor(ctx context.Context, email string) ([]domain.LedgerEntry, error) {
	rows, err := s.Store.ListTransactions(ctx, store.TxFilter{Email: email, Side: store.SideAny})
	if err != nil {
		return nil, err
	}
	return Tag(email, rows), nil
}

// Tag marks rows from email's point of view and reverses them to newest first.
func Tag(email string, rows []domain.Transaction) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, domain.LedgerEntry{
			Transaction: rows[i],
			Sent:        rows[i].Sender == email,
		})
	}
	return out
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Transaction, error) {
	return s.Store.ListTransactions(ctx, store.TxFilter{})
}

// ListForUser resolves userID to an email and lists that user's rows on side,
// in recorded order.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, side store.Side) ([]domain.Transaction, error) {
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Store.ListTransactions(ctx, store.TxFilter{Email: u.Email, Side: side})
}

// Summarize totals entries. A transfer to oneself counts on both sides, so
// Net tracks the balance change.
func Summarize(entries []domain.LedgerEntry) Summary {
	sum := Summary{Sent: decimal.Zero, Received: decimal.Zero}
	for _, e := range entries {
		self := e.Sender == e.Recipient
		if e.Sent || self {
			sum.Sent = sum.Sent.Add(e.Amount)
		}
		if !e.Sent || self {
			sum.Received = sum.Received.Add(e.Amount)
		}
	}
	sum.Net = sum.Received.Sub(sum.Sent)
	sum.Count = len(entries)
	return sum
}
