package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	localEmail = "user_email"
	localName  = "user_name"
)

func tokenFrom(c *fiber.Ctx) string {
	if h := strings.TrimSpace(c.Get("Authorization")); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Cookies(SessionCookie)
}

// Optional attaches the caller's identity when a valid session is present
// and never rejects the request.
func Optional(s *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := tokenFrom(c); raw != "" {
			if id, err := s.Parse(raw); err == nil {
				setIdentity(c, id)
			}
		}
		return c.Next()
	}
}

// Required rejects unauthenticated requests. Browser page loads are sent to
// /login; everything else gets a 401.
func Required(s *Sessions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := tokenFrom(c)
		if raw != "" {
			if id, err := s.Parse(raw); err == nil {
				setIdentity(c, id)
				return c.Next()
			}
		}
		if c.Method() == fiber.MethodGet && strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML) {
			return c.Redirect("/login", fiber.StatusFound)
		}
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
}

func setIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(localEmail, id.Email)
	c.Locals(localName, id.Name)
}

// IdentityFrom returns the identity stored by Optional or Required.
func IdentityFrom(c *fiber.Ctx) (Identity, bool) {
	email, _ := c.Locals(localEmail).(string)
	if strings.TrimSpace(email) == "" {
		return Identity{}, false
	}
	name, _ := c.Locals(localName).(string)
	return Identity{Email: email, Name: name}, true
}
