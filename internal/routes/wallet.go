package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/funding"
	"github.com/congo-pay/peerwallet/internal/transfer"
)

// RegisterWalletRoutes wires wallet funding and peer-to-peer transfer.
func RegisterWalletRoutes(r fiber.Router, fund *funding.Handler, send *transfer.Handler) {
	group := r.Group("/wallet")
	group.Post("/fund", fund.Fund)
	group.Post("/transfer", send.Transfer)
}
