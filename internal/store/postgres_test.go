package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
)

// newTestPostgres connects to TEST_DATABASE_URL, applies the schema and
// empties every table. Tests using it are skipped when the variable is unset.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/migrations.sql")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE users, user_friends, transactions, audit_logs RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgres(pool)
}

func seedPG(t *testing.T, p *Postgres, email, balance string) *domain.User {
	t.Helper()
	u := &domain.User{Name: email, Email: email, Balance: decimal.RequireFromString(balance)}
	if err := p.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return u
}

func pgBalance(t *testing.T, p *Postgres, id uuid.UUID) string {
	t.Helper()
	u, err := p.GetUser(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return u.Balance.StringFixed(2)
}

func transferOf(from, to *domain.User, amount string) domain.TransferRecord {
	return domain.TransferRecord{
		SenderID:    from.ID,
		RecipientID: to.ID,
		Sender:      from.Email,
		Recipient:   to.Email,
		Amount:      decimal.RequireFromString(amount),
		TimeSent:    time.Now().UTC(),
	}
}

func TestPostgresCreateUserConflict(t *testing.T) {
	p := newTestPostgres(t)
	seedPG(t, p, "alice@example.com", "0")

	err := p.CreateUser(context.Background(), &domain.User{Name: "dup", Email: "alice@example.com"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := p.GetUserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresAddFriendIdempotent(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	alice := seedPG(t, p, "alice@example.com", "0")
	bob := seedPG(t, p, "bob@example.com", "0")
	carol := seedPG(t, p, "carol@example.com", "0")

	for i, f := range []*domain.User{bob, bob, carol} {
		added, err := p.AddFriend(ctx, alice.ID, domain.Friend{Email: f.Email, ID: f.ID})
		if err != nil {
			t.Fatal(err)
		}
		if want := i != 1; added != want {
			t.Fatalf("call %d: added = %v, want %v", i, added, want)
		}
	}

	got, err := p.GetUser(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Friends) != 2 || got.Friends[0].Email != bob.Email || got.Friends[1].Email != carol.Email {
		t.Fatalf("friends = %+v", got.Friends)
	}

	if _, err := p.AddFriend(ctx, uuid.New(), domain.Friend{Email: bob.Email, ID: bob.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing owner: err = %v, want ErrNotFound", err)
	}

	// Friend values are stored as given; only the owner is checked.
	stranger := domain.Friend{Email: "nobody@example.com", ID: uuid.New()}
	if added, err := p.AddFriend(ctx, alice.ID, stranger); err != nil || !added {
		t.Fatalf("unknown friend id: added=%v err=%v", added, err)
	}
}

func TestPostgresRecordTransfer(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	alice := seedPG(t, p, "alice@example.com", "100")
	bob := seedPG(t, p, "bob@example.com", "50")

	tx, err := p.RecordTransfer(ctx, transferOf(alice, bob, "25"))
	if err != nil {
		t.Fatal(err)
	}
	if pgBalance(t, p, alice.ID) != "75.00" || pgBalance(t, p, bob.ID) != "75.00" {
		t.Fatalf("balances: alice=%s bob=%s", pgBalance(t, p, alice.ID), pgBalance(t, p, bob.ID))
	}

	rows, err := p.ListTransactions(ctx, TxFilter{Email: bob.Email, Side: SideReceived})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != tx.ID || !rows[0].Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("received = %+v", rows)
	}
}

func TestPostgresRecordTransferMissingRecipientRollsBack(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	alice := seedPG(t, p, "alice@example.com", "100")
	bob := seedPG(t, p, "bob@example.com", "0")

	if _, err := p.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, bob.ID); err != nil {
		t.Fatal(err)
	}

	_, err := p.RecordTransfer(ctx, transferOf(alice, bob, "10"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if got := pgBalance(t, p, alice.ID); got != "100.00" {
		t.Fatalf("sender debited despite failure: %s", got)
	}
	rows, err := p.ListTransactions(ctx, TxFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("ledger rows = %d, want 0", len(rows))
	}
}

func TestPostgresRecordTransferDenyOverdraftRollsBack(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	alice := seedPG(t, p, "alice@example.com", "10")
	bob := seedPG(t, p, "bob@example.com", "0")

	rec := transferOf(alice, bob, "10.01")
	rec.DenyOverdraft = true
	if _, err := p.RecordTransfer(ctx, rec); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if pgBalance(t, p, alice.ID) != "10.00" || pgBalance(t, p, bob.ID) != "0.00" {
		t.Fatalf("balances changed: alice=%s bob=%s", pgBalance(t, p, alice.ID), pgBalance(t, p, bob.ID))
	}
	if rows, _ := p.ListTransactions(ctx, TxFilter{}); len(rows) != 0 {
		t.Fatalf("ledger rows = %d, want 0", len(rows))
	}

	rec = transferOf(alice, bob, "10")
	rec.DenyOverdraft = true
	if _, err := p.RecordTransfer(ctx, rec); err != nil {
		t.Fatalf("exact balance should pass: %v", err)
	}
}

func TestPostgresConcurrentOppositeTransfers(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	alice := seedPG(t, p, "alice@example.com", "1000")
	bob := seedPG(t, p, "bob@example.com", "1000")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := p.RecordTransfer(ctx, transferOf(alice, bob, "3"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := p.RecordTransfer(ctx, transferOf(bob, alice, "1"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("transfer failed: %v", err)
		}
	}

	if pgBalance(t, p, alice.ID) != "960.00" || pgBalance(t, p, bob.ID) != "1040.00" {
		t.Fatalf("balances: alice=%s bob=%s", pgBalance(t, p, alice.ID), pgBalance(t, p, bob.ID))
	}
}

func TestPostgresListTransactionsRecordedOrder(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()
	alice := seedPG(t, p, "alice@example.com", "100")
	bob := seedPG(t, p, "bob@example.com", "100")
	carol := seedPG(t, p, "carol@example.com", "100")

	// Later rows get earlier timestamps so only seq can produce this order.
	base := time.Now().UTC()
	var want []uuid.UUID
	for i, pair := range [][2]*domain.User{{alice, bob}, {bob, carol}, {carol, alice}} {
		rec := transferOf(pair[0], pair[1], "1")
		rec.TimeSent = base.Add(-time.Duration(i) * time.Minute)
		tx, err := p.RecordTransfer(ctx, rec)
		if err != nil {
			t.Fatal(err)
		}
		want = append(want, tx.ID)
	}

	all, err := p.ListTransactions(ctx, TxFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("rows = %d", len(all))
	}
	for i := range want {
		if all[i].ID != want[i] {
			t.Fatalf("row %d = %s, want %s", i, all[i].ID, want[i])
		}
	}

	sent, _ := p.ListTransactions(ctx, TxFilter{Email: bob.Email, Side: SideSent})
	both, _ := p.ListTransactions(ctx, TxFilter{Email: bob.Email, Side: SideAny})
	if len(sent) != 1 || sent[0].ID != want[1] || len(both) != 2 {
		t.Fatalf("bob sent=%d both=%d", len(sent), len(both))
	}
}
