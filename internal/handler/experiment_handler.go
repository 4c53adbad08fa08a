package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/service"
	"github.com/csmht/signlab-api/internal/utils"
)

// ExperimentHandler wires experiment authoring routes.
type ExperimentHandler struct {
	service service.ExperimentService
	logger  zerolog.Logger
}

// NewExperimentHandler constructs the handler.
func NewExperimentHandler(service service.ExperimentService, logger zerolog.Logger) *ExperimentHandler {
	return &ExperimentHandler{
		service: service,
		logger:  logger.With().Str("component", "experiment_handler").Logger(),
	}
}

// Register attaches experiment endpoints to the router group.
func (h *ExperimentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Post("/:id/steps", h.addStep)
	router.Post("/steps/:stepID/questions", h.addQuestion)
}

func (h *ExperimentHandler) list(c *fiber.Ctx) error {
	courseID := c.QueryInt("course_id")
	if courseID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "course_id is required")
	}

	experiments, err := h.service.ListByCourse(c.Context(), uint(courseID))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "experiments retrieved", experiments)
}

func (h *ExperimentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	experiment, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "experiment retrieved", experiment)
}

func (h *ExperimentHandler) create(c *fiber.Ctx) error {
	var payload dto.ExperimentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	experiment, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "experiment created", experiment)
}

func (h *ExperimentHandler) addStep(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.StepCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	step, err := h.service.AddStep(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "step created", step)
}

func (h *ExperimentHandler) addQuestion(c *fiber.Ctx) error {
	stepID, err := parseUintParam(c, "stepID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.AddQuestion(c.Context(), stepID, payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", nil)
}

func (h *ExperimentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrExperimentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "experiment not found")
	case errors.Is(err, service.ErrStepNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "step not found")
	case errors.Is(err, service.ErrDuplicateSequence):
		return utils.SendError(c, fiber.StatusConflict, "step sequence already in use")
	case errors.Is(err, service.ErrNotQuizStep):
		return utils.SendError(c, fiber.StatusBadRequest, "step is not a quiz")
	case errors.Is(err, service.ErrInvalidOptions):
		return utils.SendError(c, fiber.StatusBadRequest, "question options are invalid")
	case errors.Is(err, service.ErrEmptyContent):
		return utils.SendError(c, fiber.StatusBadRequest, "content empty after sanitization")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
