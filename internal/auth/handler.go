package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/identity"
)

// Handler exposes the login endpoint.
type Handler struct {
	ids    *identity.Service
	tokens *Service
}

// NewHandler constructs an auth handler.
func NewHandler(ids *identity.Service, tokens *Service) *Handler {
	return &Handler{ids: ids, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates credentials and returns a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}
	account, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return err
	}
	token, err := h.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"token": token})
}
