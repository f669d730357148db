package api

import (
	"github.com/gofiber/fiber/v2"

	"docqa/store"
)

type CheckHandler struct {
	store store.VectorStore
}

func NewCheckHandler(vs store.VectorStore) *CheckHandler {
	return &CheckHandler{store: vs}
}

func (h CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

// HandleReady reports 503 until the vector store answers.
func (h CheckHandler) HandleReady(c *fiber.Ctx) error {
	count, err := h.store.Count(c.UserContext())
	if err != nil {
		return NewError(fiber.StatusServiceUnavailable, "vector store unavailable")
	}
	return c.JSON(fiber.Map{"result": "ok", "documents": count})
}
