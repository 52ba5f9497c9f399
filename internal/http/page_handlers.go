package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ishantswami13-crypto/vantro-pay/internal/auth"
	"github.com/ishantswami13-crypto/vantro-pay/internal/reports"
	"github.com/ishantswami13-crypto/vantro-pay/internal/views"
)

func (h *Handler) Home(c *fiber.Ctx) error {
	_, loggedIn := auth.IdentityFrom(c)
	return c.Render("home", views.HomePage{LoggedIn: loggedIn}, views.Layout)
}

// Account renders profile, balance, candidates, friends and history.
func (h *Handler) Account(c *fiber.Ctx) error {
	ctx := c.UserContext()

	me, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	all, err := h.Accounts.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	entries, err := h.Ledger.ListFor(ctx, me.Email)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Render("account", views.BuildAccountPage(me, all, entries), views.Layout)
}

func (h *Handler) StatementPDF(c *fiber.Ctx) error {
	me, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	entries, err := h.Ledger.ListFor(c.UserContext(), me.Email)
	if err != nil {
		return h.fail(c, err)
	}

	pdf, err := reports.StatementPDF(me, entries, h.Now())
	if err != nil {
		return h.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="statement.pdf"`)
	return c.Send(pdf)
}
