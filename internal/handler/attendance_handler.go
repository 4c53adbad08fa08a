package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/middleware"
	"github.com/csmht/signlab-api/internal/service"
	"github.com/csmht/signlab-api/internal/utils"
)

// AttendanceHandler wires QR attendance routes including the live feed
// websocket upgrade.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// RegisterStudent attaches the scan endpoint to a student-facing group.
func (h *AttendanceHandler) RegisterStudent(router fiber.Router) {
	router.Post("/scan", h.scan)
}

// RegisterTeacher attaches code issuing, the record list and the live feed to
// a teacher-facing sessions group.
func (h *AttendanceHandler) RegisterTeacher(router fiber.Router) {
	router.Post("/:id/attendance/code", h.issueCode)
	router.Get("/:id/attendance", h.list)

	router.Use("/:id/attendance/feed", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("session_id", c.Params("id"))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:id/attendance/feed", websocket.New(h.feed))
}

func (h *AttendanceHandler) issueCode(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	issued, err := h.service.IssueCode(c.Context(), userIDFromContext(c), sessionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance code issued", issued)
}

func (h *AttendanceHandler) scan(c *fiber.Ctx) error {
	var payload dto.ScanRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))

	result, err := h.service.Scan(ctx, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance recorded", result)
}

func (h *AttendanceHandler) list(c *fiber.Ctx) error {
	sessionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	records, err := h.service.ListRecords(c.Context(), sessionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance records retrieved", records)
}

func (h *AttendanceHandler) feed(conn *websocket.Conn) {
	raw, _ := conn.Locals("session_id").(string)
	sessionID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "invalid session id"))
		_ = conn.Close()
		return
	}

	events, cleanup := h.service.Subscribe(uint(sessionID))
	defer cleanup()

	h.logger.Info().Uint64("session_id", sessionID).Msg("attendance feed connected")

	// The read loop only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				_ = conn.Close()
				<-closed
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				_ = conn.Close()
				<-closed
				return
			}
		case <-closed:
			h.logger.Info().Uint64("session_id", sessionID).Msg("attendance feed disconnected")
			return
		}
	}
}

func (h *AttendanceHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrSessionNotScheduled):
		return utils.SendError(c, fiber.StatusConflict, "session has no scheduled start")
	case errors.Is(err, service.ErrNotSessionOwner):
		return utils.SendError(c, fiber.StatusForbidden, "session belongs to another teacher")
	case errors.Is(err, service.ErrNoClassBound):
		return utils.SendError(c, fiber.StatusConflict, "session has no bound class")
	case errors.Is(err, service.ErrInvalidCode):
		return utils.SendError(c, fiber.StatusBadRequest, "attendance code invalid")
	case errors.Is(err, service.ErrCodeExpired):
		return utils.SendError(c, fiber.StatusGone, "attendance code expired")
	case errors.Is(err, service.ErrAlreadyScanned):
		return utils.SendError(c, fiber.StatusConflict, "attendance already recorded")
	case errors.Is(err, service.ErrWrongClass):
		return utils.SendError(c, fiber.StatusForbidden, "student is not in a class bound to this session")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
