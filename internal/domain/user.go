package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a persisted account record. Email is the natural key used by
// transfers and friend entries.
type User struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Email     string          `db:"email" json:"email"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Friends   []Friend        `json:"friends"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Friend is a denormalized reference to another user. The pair is copied from
// the request and is not checked against the users table.
type Friend struct {
	Email string    `db:"friend_email" json:"email"`
	ID    uuid.UUID `db:"friend_id" json:"id"`
}

// HasFriend reports whether email is already in the friend list.
func (u *User) HasFriend(email string) bool {
	for _, f := range u.Friends {
		if f.Email == email {
			return true
		}
	}
	return false
}
