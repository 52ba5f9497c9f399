package admin

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ishantswami13-crypto/vantro-pay/internal/store"
)

const latestLimit = 20

type Handler struct {
	Store store.Store
}

func NewHandler(st store.Store) *Handler {
	return &Handler{Store: st}
}

// Overview reports totals and the most recent users and transfers.
func (h *Handler) Overview(c *fiber.Ctx) error {
	stats, err := h.Store.Stats(c.UserContext(), latestLimit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed overview: "+err.Error())
	}
	return c.JSON(stats)
}
