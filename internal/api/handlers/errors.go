package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mihir1816/teaching-content-generator/internal/metrics"
	"github.com/mihir1816/teaching-content-generator/pkg/errs"
	"github.com/mihir1816/teaching-content-generator/pkg/logger"
)

// statusFor maps pipeline error kinds to HTTP status codes. Anything not in
// the taxonomy is an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errs.ErrPlanState):
		return fiber.StatusConflict
	case errors.Is(err, errs.ErrExtraction), errors.Is(err, errs.ErrEmptyEvidence):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrEmbedding), errors.Is(err, errs.ErrIndex), errors.Is(err, errs.ErrSchemaValidation):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, operation string, err error) error {
	status := statusFor(err)
	metrics.RequestTotal.WithLabelValues(operation, "error").Inc()

	if status >= fiber.StatusInternalServerError {
		logger.Error("Request failed", zap.String("operation", operation), zap.Error(err))
	} else {
		logger.Warn("Request rejected", zap.String("operation", operation), zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func ok(operation string) {
	metrics.RequestTotal.WithLabelValues(operation, "success").Inc()
}
