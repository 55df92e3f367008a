package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency names a Pinger. Optional dependencies are reported but never
// fail readiness.
type Dependency struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	deps        []Dependency
}

// NewHealthHandler checks deps in order on every readiness probe.
func NewHealthHandler(serviceName, version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, deps: deps}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready answers 503 when a required dependency does not respond.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	statuses := make(map[string]string, len(h.deps))
	ready := true
	for _, dep := range h.deps {
		if err := dep.Pinger.Ping(ctx); err != nil {
			statuses[dep.Name] = err.Error()
			ready = ready && dep.Optional
			continue
		}
		statuses[dep.Name] = "ok"
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "one or more dependencies unavailable",
			"code":    "DEPENDENCY_UNAVAILABLE",
			"details": statuses,
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": statuses})
}
