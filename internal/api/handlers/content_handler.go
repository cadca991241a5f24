package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mihir1816/teaching-content-generator/internal/pipeline"
)

type ContentHandler struct {
	pipeline *pipeline.Pipeline
}

func NewContentHandler(p *pipeline.Pipeline) *ContentHandler {
	return &ContentHandler{pipeline: p}
}

// GenerateContent runs the full retrieval and generation pass for a
// session. This is the expensive endpoint; the rate limiter in front of it
// keys on the session id.
func (h *ContentHandler) GenerateContent(c *fiber.Ctx) error {
	result, err := h.pipeline.GenerateContent(c.Context(), c.Params("sessionID"))
	if err != nil {
		return fail(c, "generate_content", err)
	}

	ok("generate_content")
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetDeck serves a previously assembled deck as a JSON download.
func (h *ContentHandler) GetDeck(c *fiber.Ctx) error {
	d, err := h.pipeline.GetDeck(c.Params("contentID"))
	if err != nil {
		return fail(c, "get_deck", err)
	}

	ok("get_deck")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", d.FileName))
	return c.JSON(d)
}
