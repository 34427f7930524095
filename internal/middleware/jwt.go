package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/auth"
)

// Locals keys set by JWTAuth.
const (
	LocalAccountID = "account_id"
	LocalEmail     = "email"
)

// JWTAuth validates the bearer session token and exposes its claims to
// downstream handlers.
func JWTAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		const prefix = "bearer "
		if len(authz) < len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Parse(strings.TrimSpace(authz[len(prefix):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}

		c.Locals(LocalAccountID, claims.ID)
		c.Locals(LocalEmail, claims.Email)
		return c.Next()
	}
}
