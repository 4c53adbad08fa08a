package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/service"
	"github.com/csmht/signlab-api/internal/utils"
)

// QuizHandler wires timed quiz attempt routes.
type QuizHandler struct {
	service service.QuizService
	logger  zerolog.Logger
}

// NewQuizHandler constructs the handler.
func NewQuizHandler(service service.QuizService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register attaches quiz endpoints to the sessions group.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Post("/:id/steps/:sequence/quiz/start", h.start)
	router.Post("/:id/steps/:sequence/quiz/submit", h.submit)
}

func (h *QuizHandler) start(c *fiber.Ctx) error {
	sessionID, sequence, err := quizParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	started, err := h.service.Start(c.Context(), userIDFromContext(c), sessionID, sequence)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz attempt started", started)
}

func (h *QuizHandler) submit(c *fiber.Ctx) error {
	sessionID, sequence, err := quizParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Submit(c.Context(), userIDFromContext(c), sessionID, sequence, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz graded", result)
}

func quizParams(c *fiber.Ctx) (uint, int, error) {
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	sequence, err := parseIntParam(c, "sequence")
	if err != nil {
		return 0, 0, err
	}
	return sessionID, sequence, nil
}

func (h *QuizHandler) handleError(c *fiber.Ctx, err error) error {
	var notAccessible *service.StepNotAccessibleError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrStepNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "step not found")
	case errors.Is(err, service.ErrNotQuizStep):
		return utils.SendError(c, fiber.StatusBadRequest, "step is not a quiz")
	case errors.Is(err, service.ErrQuizAlreadySubmitted):
		return utils.SendError(c, fiber.StatusConflict, "quiz already submitted")
	case errors.Is(err, service.ErrQuizTokenExpired):
		return utils.SendError(c, fiber.StatusForbidden, "quiz time limit exceeded")
	case errors.Is(err, service.ErrQuizTokenInvalid):
		return utils.SendError(c, fiber.StatusForbidden, "quiz token invalid")
	case errors.As(err, &notAccessible):
		return utils.SendError(c, fiber.StatusForbidden, fmt.Sprintf("step not accessible: %s", notAccessible.Decision))
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
