package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"remi/internal/models"
	"remi/internal/services"
)

// SessionHandler handles meeting session REST endpoints
type SessionHandler struct {
	sessionManager *services.SessionManager
	connManager    *services.ConnectionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionManager *services.SessionManager, connManager *services.ConnectionManager) *SessionHandler {
	return &SessionHandler{
		sessionManager: sessionManager,
		connManager:    connManager,
	}
}

// Create creates a new meeting session from an agenda definition payload
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var def models.AgendaDefinition
	if err := c.BodyParser(&def); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid agenda definition payload",
		})
	}

	store, err := h.sessionManager.CreateSession("", &def)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAgenda) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Printf("❌ Failed to create session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"sessionId":    store.SessionID(),
		"meetingTitle": store.MeetingTitle(),
	})
}

// List returns the ids of all live sessions
func (h *SessionHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"sessions": h.sessionManager.List(),
	})
}

// GetState returns the current snapshot for a session
func (h *SessionHandler) GetState(c *fiber.Ctx) error {
	store, ok := h.sessionManager.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.JSON(store.GetState())
}

// Delete closes and removes a session
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if sessionID == services.DefaultSessionID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The default session cannot be deleted",
		})
	}
	if err := h.sessionManager.Delete(sessionID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.JSON(fiber.Map{"deleted": sessionID})
}
