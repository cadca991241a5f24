package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/mihir1816/teaching-content-generator/pkg/errs"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.Wrapf(errs.ErrNotFound, "session x"), fiber.StatusNotFound},
		{errs.Wrapf(errs.ErrPlanState, "not approved"), fiber.StatusConflict},
		{errs.Wrapf(errs.ErrExtraction, "no text"), fiber.StatusUnprocessableEntity},
		{errs.Wrapf(errs.ErrEmptyEvidence, "no chunks"), fiber.StatusUnprocessableEntity},
		{errs.Wrap(errs.ErrEmbedding, errors.New("timeout")), fiber.StatusBadGateway},
		{errs.Wrap(errs.ErrIndex, errors.New("conn refused")), fiber.StatusBadGateway},
		{errs.Wrapf(errs.ErrSchemaValidation, "bad mcq"), fiber.StatusBadGateway},
		{errors.New("anything else"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestStatusForWrappedDeep(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", errs.Wrapf(errs.ErrPlanState, "approved plan cannot be revised"))
	assert.Equal(t, fiber.StatusConflict, statusFor(err))
}
