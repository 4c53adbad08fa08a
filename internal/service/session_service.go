package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/repository"
)

var ErrDuplicateSessionCode = errors.New("session code already in use")

// SessionService schedules experiment runs. Rescheduling only moves the
// anchor; step windows are derived at access time, so no stored step needs
// rewriting.
type SessionService interface {
	Create(ctx context.Context, teacherID uint, payload dto.SessionCreateRequest) (dto.SessionResponse, error)
	Get(ctx context.Context, id uint) (dto.SessionResponse, error)
	Reschedule(ctx context.Context, teacherID, id uint, payload dto.SessionRescheduleRequest) (dto.SessionResponse, error)
}

type sessionService struct {
	sessions    repository.SessionRepository
	experiments repository.ExperimentRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(
	sessions repository.SessionRepository,
	experiments repository.ExperimentRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) SessionService {
	return &sessionService{
		sessions:    sessions,
		experiments: experiments,
		validator:   validate,
		logger:      logger.With().Str("component", "session_service").Logger(),
	}
}

func (s *sessionService) Create(ctx context.Context, teacherID uint, payload dto.SessionCreateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	if _, err := s.experiments.GetByID(ctx, payload.ExperimentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrExperimentNotFound
		}
		return dto.SessionResponse{}, err
	}

	code := strings.TrimSpace(payload.Code)
	if code == "" {
		code = uuid.NewString()[:8]
	}

	session := models.ClassSession{
		Code:               code,
		ExperimentID:       payload.ExperimentID,
		TeacherID:          teacherID,
		StartTime:          payload.StartTime,
		EndTime:            payload.EndTime,
		MultiClass:         payload.MultiClass,
		LateAfterMinutes:   payload.LateAfterMinutes,
		MakeupAfterMinutes: payload.MakeupAfterMinutes,
	}
	for _, classID := range payload.ClassIDs {
		session.Classes = append(session.Classes, models.SessionClass{ClassID: classID})
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SessionResponse{}, ErrDuplicateSessionCode
		}
		return dto.SessionResponse{}, err
	}

	s.logger.Info().
		Uint("session_id", session.ID).
		Uint("experiment_id", session.ExperimentID).
		Str("code", session.Code).
		Msg("session created")

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Get(ctx context.Context, id uint) (dto.SessionResponse, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}

	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Reschedule(ctx context.Context, teacherID, id uint, payload dto.SessionRescheduleRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SessionResponse{}, ErrSessionNotFound
		}
		return dto.SessionResponse{}, err
	}
	if session.TeacherID != teacherID {
		return dto.SessionResponse{}, ErrNotSessionOwner
	}

	if err := s.sessions.Reschedule(ctx, id, payload.StartTime, payload.EndTime); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().
		Uint("session_id", id).
		Time("start_time", payload.StartTime).
		Time("end_time", payload.EndTime).
		Msg("session rescheduled")

	session.StartTime = &payload.StartTime
	session.EndTime = &payload.EndTime
	return dto.NewSessionResponse(session), nil
}
