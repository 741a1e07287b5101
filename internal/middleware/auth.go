package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/IGDevX/marche-conclu-payment-service/internal/config"
	"github.com/IGDevX/marche-conclu-payment-service/internal/utils"
)

const callerContextKey = "currentCallerID"

// AuthMiddleware validates service JWTs and loads the caller's Keycloak id
// into context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		callerID, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(callerContextKey, callerID)
		return c.Next()
	}
}

// GetCallerID extracts the authenticated caller id from context.
func GetCallerID(c *fiber.Ctx) (string, bool) {
	value := c.Locals(callerContextKey)
	if value == nil {
		return "", false
	}

	if id, ok := value.(string); ok && id != "" {
		return id, true
	}

	return "", false
}
