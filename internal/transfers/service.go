package transfers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ishantswami13-crypto/vantro-pay/internal/audit"
	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/events"
	"github.com/ishantswami13-crypto/vantro-pay/internal/money"
	"github.com/ishantswami13-crypto/vantro-pay/internal/store"
)

// Policy holds the product rules that are not settled yet. The zero value is
// the strictest; DefaultPolicy matches current behaviour.
type Policy struct {
	AllowSelfTransfer bool
	AllowOverdraft    bool
	RequireFriendship bool
}

func DefaultPolicy() Policy {
	return Policy{AllowSelfTransfer: true, AllowOverdraft: true}
}

type Service struct {
	Store  store.Store
	Policy Policy
	Events events.Publisher
	Audit  *audit.Recorder
	Log    zerolog.Logger
	Now    func() time.Time
}

func NewService(st store.Store, pub events.Publisher, rec *audit.Recorder, log zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		Store:  st,
		Policy: DefaultPolicy(),
		Events: pub,
		Audit:  rec,
		Log:    log,
		Now:    time.Now,
	}
}

// Transfer moves amount from the sender to the account registered under
// recipientEmail and records one ledger row. The ledger insert and both
// balance updates commit together or not at all.
func (s *Service) Transfer(ctx context.Context, senderID uuid.UUID, recipientEmail, rawAmount string) (domain.Transaction, error) {
	amount, err := money.ParseAmount(rawAmount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%v: %w", err, domain.ErrInvalidArgument)
	}

	sender, err := s.Store.GetUser(ctx, senderID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("sender: %w", err)
	}

	recipientEmail = strings.TrimSpace(recipientEmail)
	if recipientEmail == "" {
		return domain.Transaction{}, fmt.Errorf("recipient: %w", domain.ErrInvalidArgument)
	}
	recipient, err := s.Store.GetUserByEmail(ctx, recipientEmail)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("recipient: %w", err)
	}

	if !s.Policy.AllowSelfTransfer && sender.ID == recipient.ID {
		return domain.Transaction{}, fmt.Errorf("self transfer: %w", domain.ErrInvalidArgument)
	}
	if s.Policy.RequireFriendship && !sender.HasFriend(recipient.Email) {
		return domain.Transaction{}, fmt.Errorf("recipient %s is not a friend: %w", recipient.Email, domain.ErrInvalidArgument)
	}

	now := s.Now
	if now == nil {
		now = time.Now
	}
	t, err := s.Store.RecordTransfer(ctx, domain.TransferRecord{
		SenderID:      sender.ID,
		RecipientID:   recipient.ID,
		Sender:        sender.Email,
		Recipient:     recipient.Email,
		Amount:        amount,
		TimeSent:      now().UTC(),
		DenyOverdraft: !s.Policy.AllowOverdraft,
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	if s.Events != nil {
		if err := s.Events.PublishTransfer(ctx, t); err != nil {
			s.Log.Warn().Err(err).Str("transaction_id", t.ID.String()).Msg("publish transfer event failed")
		}
	}
	s.Audit.Record(ctx, audit.Entry{
		UserID:     audit.Ptr(sender.ID.String()),
		Action:     "transfer",
		EntityType: "transaction",
		EntityID:   audit.Ptr(t.ID.String()),
	}, events.NewTransferRecorded(t))

	s.Log.Info().
		Str("transaction_id", t.ID.String()).
		Str("sender", t.Sender).
		Str("recipient", t.Recipient).
		Str("amount", money.Format(t.Amount)).
		Msg("transfer recorded")
	return t, nil
}
