package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ishantswami13-crypto/vantro-pay/internal/audit"
	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Pool: pool}
}

// NewPool opens a pgx pool with NUMERIC mapped to decimal.Decimal.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := p.Pool.QueryRow(ctx, `
INSERT INTO users (id, name, email, balance)
VALUES ($1, $2, $3, $4)
RETURNING created_at
`, u.ID, u.Name, u.Email, u.Balance).Scan(&u.CreatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return fmt.Errorf("user %s: %w", u.Email, domain.ErrConflict)
		}
		return err
	}
	if u.Friends == nil {
		u.Friends = []domain.Friend{}
	}
	return nil
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return p.getUser(ctx, `WHERE id = $1`, id)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return p.getUser(ctx, `WHERE email = $1`, email)
}

func (p *Postgres) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := p.Pool.QueryRow(ctx,
		`SELECT id, name, email, balance, created_at FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Balance, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %v: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	friends, err := p.friendsOf(ctx, []uuid.UUID{u.ID})
	if err != nil {
		return nil, err
	}
	u.Friends = friends[u.ID]
	if u.Friends == nil {
		u.Friends = []domain.Friend{}
	}
	return &u, nil
}

func (p *Postgres) friendsOf(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.Friend, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	rows, err := p.Pool.Query(ctx, `
SELECT user_id, friend_email, friend_id
FROM user_friends
WHERE user_id = ANY($1::uuid[])
ORDER BY position ASC
`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.Friend, len(ids))
	for rows.Next() {
		var owner uuid.UUID
		var f domain.Friend
		if err := rows.Scan(&owner, &f.Email, &f.ID); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], f)
	}
	return out, rows.Err()
}

func (p *Postgres) ListUsers(ctx context.Context) ([]domain.User, error) {
	return p.listUsers(ctx, `ORDER BY created_at ASC, email ASC`)
}

func (p *Postgres) listUsers(ctx context.Context, tail string) ([]domain.User, error) {
	rows, err := p.Pool.Query(ctx, `SELECT id, name, email, balance, created_at FROM users `+tail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	var ids []uuid.UUID
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Balance, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
		ids = append(ids, u.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.User{}, nil
	}

	friends, err := p.friendsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Friends = friends[out[i].ID]
		if out[i].Friends == nil {
			out[i].Friends = []domain.Friend{}
		}
	}
	return out, nil
}

func (p *Postgres) AddFriend(ctx context.Context, userID uuid.UUID, f domain.Friend) (bool, error) {
	ct, err := p.Pool.Exec(ctx, `
INSERT INTO user_friends (user_id, friend_email, friend_id)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, friend_email) DO NOTHING
`, userID, f.Email, f.ID)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return false, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (p *Postgres) AdjustBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := p.Pool.QueryRow(ctx, `
UPDATE users SET balance = balance + $2
WHERE id = $1
RETURNING balance
`, userID, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return balance, err
}

type balanceDelta struct {
	id    uuid.UUID
	delta decimal.Decimal
}

func (p *Postgres) RecordTransfer(ctx context.Context, rec domain.TransferRecord) (domain.Transaction, error) {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Transaction{}, err
	}
	defer tx.Rollback(ctx)

	out := domain.Transaction{
		ID:        uuid.New(),
		Sender:    rec.Sender,
		Recipient: rec.Recipient,
		TimeSent:  rec.TimeSent,
		Amount:    rec.Amount,
	}
	_, err = tx.Exec(ctx, `
INSERT INTO transactions (id, sender, recipient, time_sent, amount)
VALUES ($1, $2, $3, $4, $5)
`, out.ID, out.Sender, out.Recipient, out.TimeSent, out.Amount)
	if err != nil {
		return domain.Transaction{}, err
	}

	deltas := []balanceDelta{
		{id: rec.SenderID, delta: rec.Amount.Neg()},
		{id: rec.RecipientID, delta: rec.Amount},
	}
	// Lock rows in id order so concurrent opposite transfers cannot deadlock.
	if deltas[1].id.String() < deltas[0].id.String() {
		deltas[0], deltas[1] = deltas[1], deltas[0]
	}
	for _, d := range deltas {
		ct, err := tx.Exec(ctx, `UPDATE users SET balance = balance + $2 WHERE id = $1`, d.id, d.delta)
		if err != nil {
			return domain.Transaction{}, err
		}
		if ct.RowsAffected() == 0 {
			return domain.Transaction{}, fmt.Errorf("user %s: %w", d.id, domain.ErrNotFound)
		}
	}

	if rec.DenyOverdraft {
		var balance decimal.Decimal
		if err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, rec.SenderID).Scan(&balance); err != nil {
			return domain.Transaction{}, err
		}
		if balance.IsNegative() {
			return domain.Transaction{}, fmt.Errorf("sender %s: %w", rec.Sender, domain.ErrInsufficientFunds)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Transaction{}, err
	}
	return out, nil
}

func (p *Postgres) ListTransactions(ctx context.Context, f TxFilter) ([]domain.Transaction, error) {
	where := ""
	args := []any{}
	if f.Email != "" {
		args = append(args, f.Email)
		switch f.Side {
		case SideSent:
			where = `WHERE sender = $1`
		case SideReceived:
			where = `WHERE recipient = $1`
		default:
			where = `WHERE sender = $1 OR recipient = $1`
		}
	}

	return p.queryTransactions(ctx, `
SELECT id, sender, recipient, time_sent, amount
FROM transactions
`+where+`
ORDER BY seq ASC`, args...)
}

func (p *Postgres) queryTransactions(ctx context.Context, sql string, args ...any) ([]domain.Transaction, error) {
	rows, err := p.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Sender, &t.Recipient, &t.TimeSent, &t.Amount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) Stats(ctx context.Context, latest int) (Stats, error) {
	if latest <= 0 || latest > 200 {
		latest = 20
	}

	var s Stats
	if err := p.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&s.UsersTotal); err != nil {
		return Stats{}, fmt.Errorf("users_total: %w", err)
	}
	if err := p.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&s.TransactionsTotal); err != nil {
		return Stats{}, fmt.Errorf("transactions_total: %w", err)
	}

	users, err := p.listUsers(ctx, fmt.Sprintf(`ORDER BY created_at DESC LIMIT %d`, latest))
	if err != nil {
		return Stats{}, fmt.Errorf("latest_users: %w", err)
	}
	s.LatestUsers = users

	txs, err := p.queryTransactions(ctx, `
SELECT id, sender, recipient, time_sent, amount
FROM transactions
ORDER BY seq DESC
LIMIT $1`, latest)
	if err != nil {
		return Stats{}, fmt.Errorf("latest_transactions: %w", err)
	}
	s.LatestTransactions = txs
	return s, nil
}

func (p *Postgres) WriteAudit(ctx context.Context, e audit.Entry) error {
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = json.RawMessage(e.Metadata)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := p.Pool.Exec(ctx, `
INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip, user_agent, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, e.UserID, e.Action, e.EntityType, e.EntityID, e.IP, e.UserAgent, metadata, e.CreatedAt)
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
