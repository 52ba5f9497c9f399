package views

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"

	"github.com/ishantswami13-crypto/vantro-pay/internal/accounts"
	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/ledger"
	"github.com/ishantswami13-crypto/vantro-pay/internal/money"
)

//go:embed templates/*.html
var templateFS embed.FS

const Layout = "layout"

// NewEngine returns the fiber view engine over the embedded templates.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

type HomePage struct {
	LoggedIn bool
}

type ErrorPage struct {
	LoggedIn bool
	Status   int
	Message  string
}

type Candidate struct {
	ID    string
	Name  string
	Email string
}

type FriendRow struct {
	ID    string
	Email string
}

type TransactionRow struct {
	Counterparty string
	Amount       string
	TimeSent     string
	Sent         bool
}

type SummaryView struct {
	Sent     string
	Received string
	Count    int
}

type AccountPage struct {
	LoggedIn bool
	ID       string
	Name     string
	Email    string
	Balance  string

	Users    []Candidate
	AnyUsers bool

	Friends    []FriendRow
	AnyFriends bool

	Transactions    []TransactionRow
	HasTransactions bool
	Summary         SummaryView
}

// BuildAccountPage assembles the account view. entries must already be
// newest first.
func BuildAccountPage(u *domain.User, all []domain.User, entries []domain.LedgerEntry) AccountPage {
	p := AccountPage{
		LoggedIn: true,
		ID:       u.ID.String(),
		Name:     u.Name,
		Email:    u.Email,
		Balance:  money.Format(u.Balance),
	}

	for _, c := range accounts.FriendCandidates(u, all) {
		p.Users = append(p.Users, Candidate{ID: c.ID.String(), Name: c.Name, Email: c.Email})
	}
	p.AnyUsers = len(p.Users) > 0

	for _, f := range u.Friends {
		p.Friends = append(p.Friends, FriendRow{ID: f.ID.String(), Email: f.Email})
	}
	p.AnyFriends = len(p.Friends) > 0

	for _, e := range entries {
		row := TransactionRow{
			Amount:   money.Format(e.Amount),
			TimeSent: e.TimeSent.UTC().Format("2006-01-02 15:04 MST"),
			Sent:     e.Sent,
		}
		if e.Sent {
			row.Counterparty = e.Recipient
		} else {
			row.Counterparty = e.Sender
		}
		p.Transactions = append(p.Transactions, row)
	}
	p.HasTransactions = len(p.Transactions) > 0

	sum := ledger.Summarize(entries)
	p.Summary = SummaryView{
		Sent:     money.Format(sum.Sent),
		Received: money.Format(sum.Received),
		Count:    sum.Count,
	}
	return p
}
