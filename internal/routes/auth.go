package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/auth"
)

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler) {
	r.Post("/login", h.Login)
}
