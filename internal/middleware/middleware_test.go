package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/peerwallet/internal/auth"
	"github.com/congo-pay/peerwallet/internal/logging"
)

func TestJWTAuth(t *testing.T) {
	tokens := auth.NewService("secret", time.Hour)
	app := fiber.New()
	app.Get("/me", JWTAuth(tokens), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Locals(LocalAccountID), "email": c.Locals(LocalEmail)})
	})

	token, err := tokens.Issue("acc-1", "alice@example.com")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestRequestIDAndAudit(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(RequestID(), Audit(logging.NewWithWriter(&buf, "test", "info")))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.NewError(http.StatusNotFound, "nope") })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(requestIDHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(requestIDHeader))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"request_id":"req-123"`)
	assert.Contains(t, lines[0], `"status":204`)
	assert.Contains(t, lines[1], `"status":404`)
}
