package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/money"
)

const SubjectTransferRecorded = "ledger.transfer_recorded"

// Publisher announces committed ledger rows to other services.
type Publisher interface {
	PublishTransfer(ctx context.Context, t domain.Transaction) error
}

// TransferRecorded is the wire payload on SubjectTransferRecorded.
type TransferRecorded struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Amount    string    `json:"amount"`
	TimeSent  time.Time `json:"time_sent"`
}

func NewTransferRecorded(t domain.Transaction) TransferRecorded {
	return TransferRecorded{
		ID:        t.ID.String(),
		Sender:    t.Sender,
		Recipient: t.Recipient,
		Amount:    money.Format(t.Amount),
		TimeSent:  t.TimeSent.UTC(),
	}
}

type NATS struct {
	nc *nats.Conn
}

// Connect dials url. The connection keeps reconnecting in the background.
func Connect(url string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("vantro-pay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATS{nc: nc}, nil
}

func (n *NATS) PublishTransfer(_ context.Context, t domain.Transaction) error {
	data, err := json.Marshal(NewTransferRecorded(t))
	if err != nil {
		return err
	}
	return n.nc.Publish(SubjectTransferRecorded, data)
}

func (n *NATS) Close() {
	if n.nc != nil {
		n.nc.Drain()
	}
}

// Nop drops every event. Used when NATS_URL is unset.
type Nop struct{}

func (Nop) PublishTransfer(context.Context, domain.Transaction) error { return nil }
