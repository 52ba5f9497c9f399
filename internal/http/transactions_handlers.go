package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/store"
)

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.Accounts.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(users)
}

func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	rows, err := h.Ledger.ListAll(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(nonNil(rows))
}

func (h *Handler) ListUserTransactions(c *fiber.Ctx) error {
	return h.listSide(c, store.SideAny)
}

func (h *Handler) ListSent(c *fiber.Ctx) error {
	return h.listSide(c, store.SideSent)
}

func (h *Handler) ListReceived(c *fiber.Ctx) error {
	return h.listSide(c, store.SideReceived)
}

func (h *Handler) listSide(c *fiber.Ctx, side store.Side) error {
	id, err := pathID(c)
	if err != nil {
		return h.fail(c, err)
	}
	rows, err := h.Ledger.ListForUser(c.UserContext(), id, side)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(nonNil(rows))
}

func nonNil(rows []domain.Transaction) []domain.Transaction {
	if rows == nil {
		return []domain.Transaction{}
	}
	return rows
}
