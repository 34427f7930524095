package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/validation"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles account sign-up.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}
	account, err := h.service.Register(c.UserContext(), RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalid):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrEmailTaken):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return err
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"account": account.Profile()})
}
