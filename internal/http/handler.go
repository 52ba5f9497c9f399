package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ishantswami13-crypto/vantro-pay/internal/accounts"
	"github.com/ishantswami13-crypto/vantro-pay/internal/auth"
	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
	"github.com/ishantswami13-crypto/vantro-pay/internal/ledger"
	"github.com/ishantswami13-crypto/vantro-pay/internal/notify"
	"github.com/ishantswami13-crypto/vantro-pay/internal/transfers"
	"github.com/ishantswami13-crypto/vantro-pay/internal/views"
)

// Handler serves the account pages and the JSON ledger routes.
type Handler struct {
	Accounts  *accounts.Service
	Transfers *transfers.Service
	Ledger    *ledger.Service
	Mailer    *notify.Mailer
	Log       zerolog.Logger
	Now       func() time.Time
}

func NewHandler(acc *accounts.Service, tr *transfers.Service, led *ledger.Service, m *notify.Mailer, log zerolog.Logger) *Handler {
	return &Handler{
		Accounts:  acc,
		Transfers: tr,
		Ledger:    led,
		Mailer:    m,
		Log:       log,
		Now:       time.Now,
	}
}

// currentUser provisions the record for the logged-in identity on first use.
func (h *Handler) currentUser(c *fiber.Ctx) (*domain.User, error) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return h.Accounts.GetOrCreate(c.UserContext(), id.Email, id.Name)
}

// ownAccount resolves :id and checks that it belongs to the caller.
func (h *Handler) ownAccount(c *fiber.Ctx) (*domain.User, error) {
	target, err := domain.ParseID(c.Params("id"))
	if err != nil {
		return nil, err
	}
	me, err := h.currentUser(c)
	if err != nil {
		return nil, err
	}
	if me.ID != target {
		return nil, domain.ErrForbidden
	}
	return me, nil
}

func pathID(c *fiber.Ctx) (uuid.UUID, error) {
	return domain.ParseID(c.Params("id"))
}

func wantsHTML(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML
}

// fail renders the error page for browser requests and a JSON error otherwise.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := domain.HTTPStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		h.Log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = "internal error"
	}
	if wantsHTML(c) {
		_, loggedIn := auth.IdentityFrom(c)
		return c.Status(status).Render("error", views.ErrorPage{
			LoggedIn: loggedIn,
			Status:   status,
			Message:  msg,
		}, views.Layout)
	}
	return fiber.NewError(status, msg)
}

// ErrorHandler is the app-wide fallback; it keeps fiber errors as they are and
// maps domain errors to their status codes.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := domain.HTTPStatus(err)
		msg := err.Error()

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status, msg = fe.Code, fe.Message
		}
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
			if fe == nil {
				msg = "internal error"
			}
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
}
