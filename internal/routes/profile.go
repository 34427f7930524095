package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/identity"
	"github.com/congo-pay/peerwallet/internal/middleware"
	"github.com/congo-pay/peerwallet/internal/wallet"
)

// RegisterProfileRoute exposes the authenticated account and its balance.
func RegisterProfileRoute(r fiber.Router, ids *identity.Service, wallets wallet.Store) {
	r.Get("/profile", func(c *fiber.Ctx) error {
		accountID, _ := c.Locals(middleware.LocalAccountID).(string)
		if accountID == "" {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		account, err := ids.Get(c.UserContext(), accountID)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, "account not found")
			}
			return err
		}
		balance, err := wallets.Balance(c.UserContext(), account.ID)
		if err != nil {
			return err
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"account": account.Profile(),
			"balance": balance,
		})
	})
}
