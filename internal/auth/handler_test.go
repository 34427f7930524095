package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/peerwallet/internal/identity"
	"github.com/congo-pay/peerwallet/internal/logging"
	"github.com/congo-pay/peerwallet/internal/wallet"
)

func TestLoginHandler(t *testing.T) {
	ids := identity.NewService(identity.NewMemoryRepository(), NewBcryptHasher(4), wallet.NewMemoryStore(), logging.Discard())
	account, err := ids.Register(context.Background(), identity.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)

	tokens := NewService("secret", time.Hour)
	app := fiber.New()
	app.Post("/login", NewHandler(ids, tokens).Login)

	login := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := login(`{"email":"alice@example.com","password":"password1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	claims, err := tokens.Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.ID)
	assert.Equal(t, "alice@example.com", claims.Email)

	assert.Equal(t, http.StatusUnauthorized, login(`{"email":"alice@example.com","password":"nope-nope"}`).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, login(`{"email":"bob@example.com","password":"password1"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, login(`{"email":`).StatusCode)
}
