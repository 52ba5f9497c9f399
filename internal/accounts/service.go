package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ishantswami13-crypto/vantro-pay/internal/audit"
	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/money"
	"github.com/ishantswami13-crypto/vantro-pay/internal/store"
)

type Service struct {
	Store store.Store
	Audit *audit.Recorder
}

func NewService(st store.Store, rec *audit.Recorder) *Service {
	return &Service{Store: st, Audit: rec}
}

// GetOrCreate returns the account for email, provisioning it with a zero
// balance on first use. A concurrent first request that wins the insert is
// observed as ErrConflict here and resolved by reading the winner's row.
func (s *Service) GetOrCreate(ctx context.Context, email, displayName string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email: %w", domain.ErrInvalidArgument)
	}

	u, err := s.Store.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	u = &domain.User{
		Name:    displayNameOr(displayName, email),
		Email:   email,
		Balance: decimal.Zero,
		Friends: []domain.Friend{},
	}
	err = s.Store.CreateUser(ctx, u)
	if errors.Is(err, domain.ErrConflict) {
		return s.Store.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, audit.Entry{
		UserID:     audit.Ptr(u.ID.String()),
		Action:     "account_provisioned",
		EntityType: "user",
		EntityID:   audit.Ptr(u.ID.String()),
	}, nil)
	return u, nil
}

func displayNameOr(name, email string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.Store.GetUser(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.Store.ListUsers(ctx)
}

// AddFriend appends {friendEmail, friendID} to the user's friend list unless
// that email is already present. It reports whether a row was added.
func (s *Service) AddFriend(ctx context.Context, userID uuid.UUID, friendEmail, friendID string) (bool, error) {
	friendEmail = strings.TrimSpace(friendEmail)
	if friendEmail == "" {
		return false, fmt.Errorf("friend email: %w", domain.ErrInvalidArgument)
	}
	fid, err := domain.ParseID(friendID)
	if err != nil {
		return false, err
	}

	added, err := s.Store.AddFriend(ctx, userID, domain.Friend{Email: friendEmail, ID: fid})
	if err != nil {
		return false, err
	}
	if added {
		s.Audit.Record(ctx, audit.Entry{
			UserID:     audit.Ptr(userID.String()),
			Action:     "friend_added",
			EntityType: "user",
			EntityID:   audit.Ptr(fid.String()),
		}, map[string]string{"friend_email": friendEmail})
	}
	return added, nil
}

// AddBalance credits (or debits, for a negative amount) the user's balance.
// It is an operator utility and writes no ledger row.
func (s *Service) AddBalance(ctx context.Context, userID uuid.UUID, rawAmount string) (decimal.Decimal, error) {
	amount, err := money.ParseSignedAmount(rawAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
	}

	balance, err := s.Store.AdjustBalance(ctx, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}

	s.Audit.Record(ctx, audit.Entry{
		UserID:     audit.Ptr(userID.String()),
		Action:     "balance_adjusted",
		EntityType: "user",
		EntityID:   audit.Ptr(userID.String()),
	}, map[string]string{"amount": money.Format(amount), "balance": money.Format(balance)})
	return balance, nil
}

// FriendCandidates lists every user that is neither u nor already in u's
// friend list, preserving the order of all.
func FriendCandidates(u *domain.User, all []domain.User) []domain.User {
	out := make([]domain.User, 0, len(all))
	for _, other := range all {
		if other.Email == u.Email || u.HasFriend(other.Email) {
			continue
		}
		out = append(out, other)
	}
	return out
}
