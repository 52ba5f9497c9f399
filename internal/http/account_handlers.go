package http

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/money"
)

// amountText binds an amount from a form value, a JSON string or a JSON
// number. The text is validated later by money.ParseAmount.
type amountText string

func (a *amountText) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*a = amountText(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*a = amountText(s)
	return nil
}

type balanceReq struct {
	Balance amountText `json:"balance" form:"balance"`
}

type friendReq struct {
	FriendEmail string `json:"friend_email" form:"friend_email"`
	FriendID    string `json:"friend_id" form:"friend_id"`
}

type transferReq struct {
	Recipient string     `json:"recipient" form:"recipient"`
	Amount    amountText `json:"amount" form:"amount"`
}

type inviteReq struct {
	Email string `json:"email" form:"email"`
}

// done answers a completed write: browsers go back to the account page,
// API clients get the payload.
func done(c *fiber.Ctx, payload any) error {
	ct := c.Get(fiber.HeaderContentType)
	if wantsHTML(c) || strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm) {
		return c.Redirect("/account", fiber.StatusSeeOther)
	}
	return c.JSON(payload)
}

func (h *Handler) AddBalance(c *fiber.Ctx) error {
	me, err := h.ownAccount(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req balanceReq
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.ErrInvalidArgument)
	}

	bal, err := h.Accounts.AddBalance(c.UserContext(), me.ID, string(req.Balance))
	if err != nil {
		return h.fail(c, err)
	}
	return done(c, fiber.Map{"balance": money.Format(bal)})
}

func (h *Handler) AddFriend(c *fiber.Ctx) error {
	me, err := h.ownAccount(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req friendReq
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.ErrInvalidArgument)
	}

	added, err := h.Accounts.AddFriend(c.UserContext(), me.ID, req.FriendEmail, req.FriendID)
	if err != nil {
		return h.fail(c, err)
	}
	return done(c, fiber.Map{"added": added})
}

func (h *Handler) Transfer(c *fiber.Ctx) error {
	me, err := h.ownAccount(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req transferReq
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.ErrInvalidArgument)
	}

	tx, err := h.Transfers.Transfer(c.UserContext(), me.ID, req.Recipient, string(req.Amount))
	if err != nil {
		return h.fail(c, err)
	}
	return done(c, tx)
}

// Invite hands the mail off to the background sender. Only a rejected
// address is reported back; delivery failures are logged by the mailer.
func (h *Handler) Invite(c *fiber.Ctx) error {
	me, err := h.currentUser(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req inviteReq
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, domain.ErrInvalidArgument)
	}

	result := h.Mailer.SendInvite(me.Email, req.Email)
	select {
	case err := <-result:
		if errors.Is(err, domain.ErrInvalidArgument) {
			return h.fail(c, err)
		}
	default:
	}
	return done(c, fiber.Map{"invited": req.Email})
}
