package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/validation"
	"github.com/congo-pay/peerwallet/internal/wallet"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Amount int64  `json:"amount"`
	Email  string `json:"email"`
}

// Transfer moves funds from the authenticated account to the account
// registered under the request email.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}
	accountID, _ := c.Locals("account_id").(string)

	res, err := h.service.Transfer(c.UserContext(), Input{
		SenderID:      accountID,
		ReceiverEmail: req.Email,
		Amount:        req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalid):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, wallet.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be at least 1")
		case errors.Is(err, ErrSelfTransfer):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrReceiverNotFound):
			return fiber.NewError(http.StatusNotFound, "No account found with this email address")
		case errors.Is(err, wallet.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "can not transfer more than your current balance")
		case errors.Is(err, wallet.ErrBalanceOverflow):
			return fiber.NewError(http.StatusBadRequest, "receiver balance limit exceeded")
		case errors.Is(err, wallet.ErrConflict):
			return fiber.NewError(http.StatusConflict, "wallet is busy, please retry")
		default:
			return err
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"message": res.Message})
}
