package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/archivohistorico/heritage/internal/pkg/storage"
)

// HealthController reports the last storage check results
type HealthController struct {
	monitor *storage.Monitor
}

// NewHealthController creates a health controller. A nil monitor reports ok.
func NewHealthController(monitor *storage.Monitor) *HealthController {
	return &HealthController{monitor: monitor}
}

// HandleHealth answers 503 when any backend failed its last check
func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	if hc.monitor == nil {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	results := hc.monitor.Results()
	status := "ok"
	for _, h := range results {
		if !h.Healthy {
			status = "degraded"
			c.Status(fiber.StatusServiceUnavailable)
			break
		}
	}
	return c.JSON(fiber.Map{"status": status, "storage": results})
}
