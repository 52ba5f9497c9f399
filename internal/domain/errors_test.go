package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("recipient a@b.c: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("amount: %w", ErrInvalidArgument), http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{ErrInsufficientFunds, http.StatusBadRequest},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHasFriend(t *testing.T) {
	u := User{Friends: []Friend{{Email: "bob@example.com"}}}
	if !u.HasFriend("bob@example.com") {
		t.Fatal("expected bob to be a friend")
	}
	if u.HasFriend("carol@example.com") {
		t.Fatal("carol should not be a friend")
	}
}

func TestParseID(t *testing.T) {
	if _, err := ParseID("not-a-uuid"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	id, err := ParseID(" 11111111-1111-1111-1111-111111111111 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("got %s", id)
	}
}
