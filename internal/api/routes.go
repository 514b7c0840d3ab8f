package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/adviser-fees/internal/metrics"
	"github.com/Checker-Finance/adviser-fees/internal/rate"
)

// HealthChecker reports backing store health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RegisterRoutes wires the service routes. nc and st may be nil when NATS or
// the store is not configured; they are then reported as disabled.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, st HealthChecker, h *Handler, limiter *rate.Manager) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats":  "ok",
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		switch {
		case nc == nil:
			checks["nats"] = "disabled"
		case !nc.IsConnected():
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		default:
			if err := nc.FlushTimeout(1 * time.Second); err != nil {
				checks["nats"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		if st == nil {
			checks["store"] = "disabled"
		} else {
			healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := st.HealthCheck(healthCtx); err != nil {
				checks["store"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	v1 := app.Group("/api/v1", RateLimit(limiter))
	v1.Post("/records/classify", h.Classify)
	v1.Post("/records/batch", h.ClassifyBatch)
	v1.Get("/rows/:source/:row", h.GetRow)
	v1.Get("/files", h.ListFiles)
	v1.Post("/effective-fee", h.EffectiveFee)
}

// RateLimit rejects callers that exceed their per-IP token bucket.
func RateLimit(limiter *rate.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Allow(c.IP()) {
			metrics.IncError("api", "rate_limited")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
