package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/peerwallet/internal/metrics"
)

// Metrics records request counts and latency per matched route.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		m.ObserveRequest(c.Method(), route, statusOf(c, err), time.Since(start))
		return err
	}
}
