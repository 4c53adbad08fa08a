package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/csmht/signlab-api/internal/service"
	"github.com/csmht/signlab-api/internal/utils"
)

// ReportHandler wires report upload routes.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches the report endpoint to the sessions group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Post("/:id/steps/:sequence/report", h.upload)
}

func (h *ReportHandler) upload(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	sequence, err := parseIntParam(c, "sequence")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "report file is required")
	}

	result, err := h.service.Upload(c.Context(), userIDFromContext(c), sessionID, sequence, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report uploaded", result)
}

func (h *ReportHandler) handleError(c *fiber.Ctx, err error) error {
	var notAccessible *service.StepNotAccessibleError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrStepNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "step not found")
	case errors.Is(err, service.ErrNotReportStep):
		return utils.SendError(c, fiber.StatusBadRequest, "step is not a report")
	case errors.As(err, &notAccessible):
		return utils.SendError(c, fiber.StatusForbidden, fmt.Sprintf("step not accessible: %s", notAccessible.Decision))
	case strings.Contains(err.Error(), "unsupported file type"):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
