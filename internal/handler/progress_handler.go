package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/csmht/signlab-api/internal/service"
	"github.com/csmht/signlab-api/internal/utils"
)

// ProgressHandler wires the acknowledgement and skip routes for steps without
// a submission of their own.
type ProgressHandler struct {
	service service.ProgressService
	logger  zerolog.Logger
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service service.ProgressService, logger zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		logger:  logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register attaches the progress endpoints to the sessions group.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Post("/:id/steps/:sequence/complete", h.complete)
	router.Post("/:id/steps/:sequence/skip", h.skip)
}

func (h *ProgressHandler) complete(c *fiber.Ctx) error {
	sessionID, sequence, err := quizParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Complete(c.Context(), userIDFromContext(c), sessionID, sequence)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "step completed", result)
}

func (h *ProgressHandler) skip(c *fiber.Ctx) error {
	sessionID, sequence, err := quizParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Skip(c.Context(), userIDFromContext(c), sessionID, sequence)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "step skipped", result)
}

func (h *ProgressHandler) handleError(c *fiber.Ctx, err error) error {
	var notAccessible *service.StepNotAccessibleError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrStepNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "step not found")
	case errors.Is(err, service.ErrNotCompletableStep):
		return utils.SendError(c, fiber.StatusBadRequest, "step completes through its own submission")
	case errors.Is(err, service.ErrStepNotSkippable):
		return utils.SendError(c, fiber.StatusBadRequest, "step is not skippable")
	case errors.Is(err, service.ErrStepAlreadyCompleted):
		return utils.SendError(c, fiber.StatusConflict, "step already completed")
	case errors.As(err, &notAccessible):
		return utils.SendError(c, fiber.StatusForbidden, fmt.Sprintf("step not accessible: %s", notAccessible.Decision))
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
