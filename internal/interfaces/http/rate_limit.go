package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/jhoicas/bodega-ledger/internal/application/dto"
)

// NewRateLimiter crea un limitador en memoria a partir de un formato "<n>-<S|M|H|D>" (ej. "120-M").
// Formato vacío = sin límite (nil).
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	if formatted == "" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit limita las mutaciones por usuario del token (o por IP si no hay usuario).
// Debe ir después de AuthMiddleware.
func RateLimit(l *limiter.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := GetUserID(c)
		if key == "" {
			key = c.IP()
		}
		lc, err := l.Get(c.Context(), key)
		if err != nil {
			// Sin almacén no se bloquea la operación.
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))
		if lc.Reached {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "demasiadas operaciones, intente más tarde",
			})
		}
		return c.Next()
	}
}
