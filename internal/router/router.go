package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ishantswami13-crypto/vantro-pay/internal/admin"
	"github.com/ishantswami13-crypto/vantro-pay/internal/auth"
	handlers "github.com/ishantswami13-crypto/vantro-pay/internal/http"
)

type Router struct {
	Web          *handlers.Handler
	AuthHandlers *auth.Handlers
	AdminHandler *admin.Handler
	Sessions     *auth.Sessions
	AdminMW      fiber.Handler
	WriteLimit   fiber.Handler
}

func (r *Router) RegisterRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if r.AuthHandlers != nil {
		r.AuthHandlers.Register(app)
	}

	authMW := auth.Required(r.Sessions)
	write := func(h fiber.Handler) []fiber.Handler {
		if r.WriteLimit == nil {
			return []fiber.Handler{authMW, h}
		}
		return []fiber.Handler{authMW, r.WriteLimit, h}
	}

	app.Get("/", auth.Optional(r.Sessions), r.Web.Home)
	app.Get("/account", authMW, r.Web.Account)
	app.Get("/account/statement.pdf", authMW, r.Web.StatementPDF)

	app.Get("/users", authMW, r.Web.ListUsers)
	app.Get("/transactions", authMW, r.Web.ListTransactions)
	app.Get("/transactions/sent/:id", authMW, r.Web.ListSent)
	// "recieved" is the published path; "received" is accepted as well.
	app.Get("/transactions/recieved/:id", authMW, r.Web.ListReceived)
	app.Get("/transactions/received/:id", authMW, r.Web.ListReceived)
	app.Get("/transactions/:id", authMW, r.Web.ListUserTransactions)

	app.Post("/users/:id/balance", write(r.Web.AddBalance)...)
	app.Post("/users/:id/friends", write(r.Web.AddFriend)...)
	app.Post("/users/:id/transfer", write(r.Web.Transfer)...)
	app.Post("/friends/invite", write(r.Web.Invite)...)

	if r.AdminHandler != nil && r.AdminMW != nil {
		app.Get("/admin/overview", r.AdminMW, r.AdminHandler.Overview)
	}
}
