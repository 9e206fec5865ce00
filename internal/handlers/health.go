package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"remi/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	connManager    *services.ConnectionManager
	sessionManager *services.SessionManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(connManager *services.ConnectionManager, sessionManager *services.SessionManager) *HealthHandler {
	return &HealthHandler{connManager: connManager, sessionManager: sessionManager}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"connections": h.connManager.Count(),
		"sessions":    h.sessionManager.Count(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
