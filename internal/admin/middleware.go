package admin

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const keyHeader = "X-Admin-Key"

// RequireAdminAPIKey checks X-Admin-Key against key. An empty key disables
// the admin routes instead of leaving them open.
func RequireAdminAPIKey(key string) fiber.Handler {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusServiceUnavailable, "ADMIN_API_KEY not set")
		}
	}

	return func(c *fiber.Ctx) error {
		got := strings.TrimSpace(c.Get(keyHeader))
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid admin key")
		}
		return c.Next()
	}
}
