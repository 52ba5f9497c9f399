package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ishantswami13-crypto/vantro-pay/internal/accounts"
	"github.com/ishantswami13-crypto/vantro-pay/internal/audit"
	"github.com/ishantswami13-crypto/vantro-pay/internal/auth"
	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/events"
	"github.com/ishantswami13-crypto/vantro-pay/internal/ledger"
	"github.com/ishantswami13-crypto/vantro-pay/internal/notify"
	"github.com/ishantswami13-crypto/vantro-pay/internal/store"
	"github.com/ishantswami13-crypto/vantro-pay/internal/transfers"
	"github.com/ishantswami13-crypto/vantro-pay/internal/views"
)

type capturedMail struct {
	mu  sync.Mutex
	got []notify.Invite
}

func (m *capturedMail) Send(_ context.Context, inv notify.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, inv)
	return nil
}

type testServer struct {
	app      *fiber.App
	mem      *store.Memory
	sessions *auth.Sessions
	mail     *capturedMail
	h        *Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	mem := store.NewMemory()
	rec := audit.NewRecorder(mem, log)
	mail := &capturedMail{}

	h := NewHandler(
		accounts.NewService(mem, rec),
		transfers.NewService(mem, events.Nop{}, rec, log),
		ledger.NewService(mem),
		notify.NewMailer(mail, "http://localhost:8080", log),
		log,
	)
	h.Now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	sessions := auth.NewSessions("test-secret", time.Hour)
	app := fiber.New(fiber.Config{Views: views.NewEngine(), ErrorHandler: ErrorHandler(log)})

	app.Get("/", auth.Optional(sessions), h.Home)
	app.Get("/account", auth.Required(sessions), h.Account)
	app.Get("/account/statement.pdf", auth.Required(sessions), h.StatementPDF)
	app.Get("/users", auth.Required(sessions), h.ListUsers)
	app.Get("/transactions", auth.Required(sessions), h.ListTransactions)
	app.Get("/transactions/sent/:id", auth.Required(sessions), h.ListSent)
	app.Get("/transactions/recieved/:id", auth.Required(sessions), h.ListReceived)
	app.Get("/transactions/:id", auth.Required(sessions), h.ListUserTransactions)
	app.Post("/users/:id/balance", auth.Required(sessions), h.AddBalance)
	app.Post("/users/:id/friends", auth.Required(sessions), h.AddFriend)
	app.Post("/users/:id/transfer", auth.Required(sessions), h.Transfer)
	app.Post("/friends/invite", auth.Required(sessions), h.Invite)

	return &testServer{app: app, mem: mem, sessions: sessions, mail: mail, h: h}
}

func (s *testServer) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := s.h.Accounts.GetOrCreate(context.Background(), email, "")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func (s *testServer) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := s.sessions.Sign(auth.Identity{Email: email})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, req *http.Request, as string) *http.Response {
	t.Helper()
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, as))
	}
	res, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func (s *testServer) postJSON(t *testing.T, path, body, as string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return s.do(t, req, as)
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestTransferFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice@example.com")
	bob := s.user(t, "bob@example.com")

	res := s.postJSON(t, "/users/"+alice.ID.String()+"/balance", `{"balance":"100"}`, alice.Email)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("balance: status=%d body=%s", res.StatusCode, readBody(t, res))
	}

	res = s.postJSON(t, "/users/"+alice.ID.String()+"/transfer", `{"recipient":"bob@example.com","amount":"25"}`, alice.Email)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("transfer: status=%d body=%s", res.StatusCode, readBody(t, res))
	}
	var tx domain.Transaction
	if err := json.NewDecoder(res.Body).Decode(&tx); err != nil {
		t.Fatal(err)
	}
	if tx.Sender != alice.Email || tx.Recipient != bob.Email || !tx.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("tx = %+v", tx)
	}

	a, _ := s.mem.GetUser(context.Background(), alice.ID)
	b, _ := s.mem.GetUser(context.Background(), bob.ID)
	if a.Balance.StringFixed(2) != "75.00" || b.Balance.StringFixed(2) != "25.00" {
		t.Fatalf("balances: alice=%s bob=%s", a.Balance, b.Balance)
	}

	res = s.do(t, httptest.NewRequest(http.MethodGet, "/transactions/recieved/"+bob.ID.String(), nil), bob.Email)
	var rows []domain.Transaction
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != tx.ID {
		t.Fatalf("received = %+v", rows)
	}

	res = s.do(t, httptest.NewRequest(http.MethodGet, "/transactions/sent/"+bob.ID.String(), nil), bob.Email)
	if got := strings.TrimSpace(readBody(t, res)); got != "[]" {
		t.Fatalf("sent by bob = %s", got)
	}
}

func TestTransferErrors(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice@example.com")
	bob := s.user(t, "bob@example.com")
	path := "/users/" + alice.ID.String() + "/transfer"

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown recipient", path, `{"recipient":"nobody@example.com","amount":"5"}`, http.StatusNotFound},
		{"zero amount", path, `{"recipient":"bob@example.com","amount":"0"}`, http.StatusBadRequest},
		{"garbage amount", path, `{"recipient":"bob@example.com","amount":"ten"}`, http.StatusBadRequest},
		{"malformed id", "/users/not-a-uuid/transfer", `{"recipient":"bob@example.com","amount":"5"}`, http.StatusBadRequest},
		{"someone else's account", "/users/" + bob.ID.String() + "/transfer", `{"recipient":"alice@example.com","amount":"5"}`, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := s.postJSON(t, tc.path, tc.body, alice.Email)
			if res.StatusCode != tc.want {
				t.Fatalf("status=%d want %d body=%s", res.StatusCode, tc.want, readBody(t, res))
			}
		})
	}

	rows, _ := s.mem.ListTransactions(context.Background(), store.TxFilter{})
	if len(rows) != 0 {
		t.Fatalf("failed transfers left %d rows", len(rows))
	}
}

func TestJSONAmountsAsNumbers(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice@example.com")
	bob := s.user(t, "bob@example.com")

	res := s.postJSON(t, "/users/"+alice.ID.String()+"/balance", `{"balance":100}`, alice.Email)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("balance: status=%d body=%s", res.StatusCode, readBody(t, res))
	}
	res = s.postJSON(t, "/users/"+alice.ID.String()+"/transfer", `{"recipient":"bob@example.com","amount":25.5}`, alice.Email)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("transfer: status=%d body=%s", res.StatusCode, readBody(t, res))
	}

	b, _ := s.mem.GetUser(context.Background(), bob.ID)
	if b.Balance.StringFixed(2) != "25.50" {
		t.Fatalf("bob balance = %s", b.Balance)
	}

	for _, body := range []string{`{"recipient":"bob@example.com","amount":1e50000000}`, `{"recipient":"bob@example.com","amount":true}`} {
		res = s.postJSON(t, "/users/"+alice.ID.String()+"/transfer", body, alice.Email)
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", body, res.StatusCode)
		}
	}
}

func TestUnauthenticatedAPIRequest(t *testing.T) {
	s := newTestServer(t)
	res := s.do(t, httptest.NewRequest(http.MethodGet, "/users", nil), "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d", res.StatusCode)
	}
}

func TestFormPostsRedirectToAccount(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice@example.com")
	bob := s.user(t, "bob@example.com")

	form := url.Values{"friend_email": {bob.Email}, "friend_id": {bob.ID.String()}}
	req := httptest.NewRequest(http.MethodPost, "/users/"+alice.ID.String()+"/friends", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	res := s.do(t, req, alice.Email)
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/account" {
		t.Fatalf("status=%d location=%q", res.StatusCode, res.Header.Get("Location"))
	}

	a, _ := s.mem.GetUser(context.Background(), alice.ID)
	if !a.HasFriend(bob.Email) {
		t.Fatalf("friend not added: %+v", a.Friends)
	}
}

func TestAccountPage(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	req.Header.Set("Accept", fiber.MIMETextHTML)
	res := s.do(t, req, "new@example.com")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", res.StatusCode)
	}
	body := readBody(t, res)
	if !strings.Contains(body, "new@example.com") || !strings.Contains(body, "0.00") {
		t.Fatalf("page does not show the provisioned account:\n%s", body)
	}

	if _, err := s.mem.GetUserByEmail(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("visiting /account did not provision the user: %v", err)
	}
}

func TestErrorPageForBrowsers(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice@example.com")

	form := url.Values{"recipient": {"ghost@example.com"}, "amount": {"5"}}
	req := httptest.NewRequest(http.MethodPost, "/users/"+alice.ID.String()+"/transfer", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	req.Header.Set("Accept", fiber.MIMETextHTML)
	res := s.do(t, req, alice.Email)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", res.StatusCode)
	}
	if body := readBody(t, res); !strings.Contains(body, "Something went wrong (404)") {
		t.Fatalf("error page not rendered:\n%s", body)
	}
}

func TestInvite(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice@example.com")

	res := s.postJSON(t, "/friends/invite", `{"email":"not an address"}`, alice.Email)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid address: status=%d", res.StatusCode)
	}

	res = s.postJSON(t, "/friends/invite", `{"email":"dave@example.com"}`, alice.Email)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", res.StatusCode, readBody(t, res))
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mail.mu.Lock()
		n := len(s.mail.got)
		s.mail.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("invite was never sent")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s.mail.got[0].Inviter != alice.Email || s.mail.got[0].To != "dave@example.com" {
		t.Fatalf("invite = %+v", s.mail.got[0])
	}
}

func TestStatementPDF(t *testing.T) {
	s := newTestServer(t)
	res := s.do(t, httptest.NewRequest(http.MethodGet, "/account/statement.pdf", nil), "alice@example.com")
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("status=%d type=%q", res.StatusCode, res.Header.Get("Content-Type"))
	}
	if !strings.HasPrefix(readBody(t, res), "%PDF") {
		t.Fatal("body is not a PDF")
	}
}
