package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/pipeline"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

type SessionHandler struct {
	pipeline *pipeline.Pipeline
}

func NewSessionHandler(p *pipeline.Pipeline) *SessionHandler {
	return &SessionHandler{pipeline: p}
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	var req pipeline.SessionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	s, err := h.pipeline.CreateSession(req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ok("create_session")
	return c.Status(fiber.StatusCreated).JSON(s)
}

func (h *SessionHandler) GeneratePlan(c *fiber.Ctx) error {
	var req struct {
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	p, err := h.pipeline.GeneratePlan(c.Context(), c.Params("sessionID"), req.Description)
	if err != nil {
		return fail(c, "generate_plan", err)
	}

	ok("generate_plan")
	return c.JSON(p)
}

func (h *SessionHandler) RegeneratePlan(c *fiber.Ctx) error {
	var req struct {
		Feedback string `json:"feedback"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Feedback == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Feedback is required",
		})
	}

	p, err := h.pipeline.RegeneratePlan(c.Context(), c.Params("sessionID"), req.Feedback)
	if err != nil {
		return fail(c, "regenerate_plan", err)
	}

	ok("regenerate_plan")
	return c.JSON(p)
}

func (h *SessionHandler) ApprovePlan(c *fiber.Ctx) error {
	p, err := h.pipeline.ApprovePlan(c.Params("sessionID"))
	if err != nil {
		return fail(c, "approve_plan", err)
	}

	ok("approve_plan")
	return c.JSON(p)
}

func (h *SessionHandler) GetPlan(c *fiber.Ctx) error {
	p, err := h.pipeline.CurrentPlan(c.Params("sessionID"))
	if err != nil {
		return fail(c, "get_plan", err)
	}
	return c.JSON(p)
}
