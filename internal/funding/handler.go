package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/wallet"
)

// Handler exposes the wallet funding endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Fund credits the authenticated account's wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req FundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}
	accountID, _ := c.Locals("account_id").(string)

	result, err := h.service.Fund(c.UserContext(), FundInput{AccountID: accountID, Amount: req.Amount})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be at least 1")
		case errors.Is(err, wallet.ErrBalanceOverflow):
			return fiber.NewError(http.StatusBadRequest, "balance limit exceeded")
		case errors.Is(err, wallet.ErrConflict):
			return fiber.NewError(http.StatusConflict, "wallet is busy, please retry")
		default:
			return err
		}
	}

	return c.Status(http.StatusOK).JSON(FundResponse{Balance: result.Balance})
}
