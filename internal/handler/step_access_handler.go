package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/csmht/signlab-api/internal/service"
	"github.com/csmht/signlab-api/internal/utils"
)

// StepAccessHandler exposes the step gate check to students.
type StepAccessHandler struct {
	service service.StepAccessService
	logger  zerolog.Logger
}

// NewStepAccessHandler constructs the handler.
func NewStepAccessHandler(service service.StepAccessService, logger zerolog.Logger) *StepAccessHandler {
	return &StepAccessHandler{
		service: service,
		logger:  logger.With().Str("component", "step_access_handler").Logger(),
	}
}

// Register attaches the access check endpoint to the sessions group.
func (h *StepAccessHandler) Register(router fiber.Router) {
	router.Get("/:id/steps/:sequence/access", h.check)
}

func (h *StepAccessHandler) check(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	sequence, err := parseIntParam(c, "sequence")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	check, err := h.service.CheckAccess(c.Context(), userIDFromContext(c), sessionID, sequence)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		case errors.Is(err, service.ErrStepNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "step not found")
		default:
			h.logger.Error().Err(err).Msg("internal server error")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
	}

	return utils.SendSuccess(c, "access evaluated", check)
}
