package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ishantswami13-crypto/vantro-pay/internal/auth"
)

// RateLimitWrite limits write endpoints to max requests per minute per
// logged-in user, falling back to the client IP. Mount it after auth.Required.
func RateLimitWrite(max int) fiber.Handler {
	if max <= 0 {
		max = 60
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, ok := auth.IdentityFrom(c); ok {
				return id.Email
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too_many_requests"})
		},
	})
}
