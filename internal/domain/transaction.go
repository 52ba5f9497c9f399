package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is one immutable ledger row. Amount is always positive; it was
// debited from Sender and credited to Recipient.
type Transaction struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Sender    string          `db:"sender" json:"sender"`
	Recipient string          `db:"recipient" json:"recipient"`
	TimeSent  time.Time       `db:"time_sent" json:"timeSent"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
}

// LedgerEntry is a Transaction seen from one user's side.
type LedgerEntry struct {
	Transaction
	Sent bool `json:"sent"`
}

// TransferRecord is the input to a store-level transfer.
type TransferRecord struct {
	SenderID    uuid.UUID
	RecipientID uuid.UUID
	Sender      string
	Recipient   string
	Amount      decimal.Decimal
	TimeSent    time.Time
	// DenyOverdraft rejects the transfer with ErrInsufficientFunds when the
	// sender balance would drop below zero.
	DenyOverdraft bool
}
