package transfer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/peerwallet/internal/wallet"
)

func TestHandlerStatusCodes(t *testing.T) {
	f := newFixture(t, wallet.NewMemoryStore())
	alice := f.account(t, "alice@example.com", 100)
	f.account(t, "bob@example.com", 10)

	app := fiber.New()
	app.Post("/wallet/transfer", func(c *fiber.Ctx) error {
		c.Locals("account_id", alice.ID)
		return c.Next()
	}, NewHandler(f.svc).Transfer)

	send := func(body string) (int, string) {
		req := httptest.NewRequest(http.MethodPost, "/wallet/transfer", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(raw)
	}

	status, body := send(`{"amount":40,"email":"bob@example.com"}`)
	assert.Equal(t, http.StatusOK, status)
	var out struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "Funds sent successfully", out.Message)

	status, body = send(`{"amount":1000,"email":"bob@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "can not transfer more than your current balance", body)

	status, body = send(`{"amount":5,"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No account found with this email address", body)

	status, _ = send(`{"amount":0,"email":"bob@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = send(`{"amount":5,"email":"alice@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = send(`{"amount":"lots"`)
	assert.Equal(t, http.StatusBadRequest, status)

	assert.Equal(t, int64(60), f.balance(t, alice.ID))
}
