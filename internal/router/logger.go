package router

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ishantswami13-crypto/vantro-pay/internal/domain"
)

// RequestLogger logs one line per request. The app ErrorHandler writes the
// response status only after the chain returns, so for a failed request the
// status is taken from the error itself.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Warn().Err(err)
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return domain.HTTPStatus(err)
}
