package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/identity"
)

// RegisterIdentityRoutes wires account sign-up.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/register", h.Register)
}
