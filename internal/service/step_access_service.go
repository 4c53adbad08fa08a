package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/access"
	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/observability"
	"github.com/csmht/signlab-api/internal/repository"
	"github.com/csmht/signlab-api/internal/schedule"
)

// Sentinel errors shared across the session-facing services.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrStepNotFound    = errors.New("step not found")
)

// StepAccessService answers the single question every step-facing feature
// funnels through: may this student open this step right now. All timing is
// recomputed from the session anchor on every call, so a reschedule takes
// effect on the next request without touching stored steps.
type StepAccessService interface {
	CheckAccess(ctx context.Context, studentID, sessionID uint, sequence int) (dto.AccessCheckResponse, error)
	PreviewWindows(ctx context.Context, sessionID uint) ([]dto.WindowPreviewResponse, error)
}

type stepAccessService struct {
	sessions    repository.SessionRepository
	experiments repository.ExperimentRepository
	progress    repository.ProgressRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewStepAccessService constructs the access service. The redis client is
// optional; without it window previews are computed on every request.
func NewStepAccessService(
	sessions repository.SessionRepository,
	experiments repository.ExperimentRepository,
	progress repository.ProgressRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) StepAccessService {
	return &stepAccessService{
		sessions:    sessions,
		experiments: experiments,
		progress:    progress,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "step_access_service").Logger(),
		now:         time.Now,
	}
}

func (s *stepAccessService) CheckAccess(ctx context.Context, studentID, sessionID uint, sequence int) (dto.AccessCheckResponse, error) {
	session, steps, err := s.loadSessionSteps(ctx, sessionID)
	if err != nil {
		return dto.AccessCheckResponse{}, err
	}

	stepIDs := make([]uint, 0, len(steps))
	for _, step := range steps {
		stepIDs = append(stepIDs, step.ID)
	}

	rows, err := s.progress.ListForSteps(ctx, sessionID, studentID, stepIDs)
	if err != nil {
		return dto.AccessCheckResponse{}, err
	}

	progressByStep := make(map[uint]models.StepProgress, len(rows))
	for _, row := range rows {
		progressByStep[row.StepID] = row
	}

	// One observation instant for the whole evaluation so a request cannot
	// straddle a window boundary.
	now := s.now()

	states := make([]access.StepState, 0, len(steps))
	targetIndex := -1
	for _, step := range steps {
		row := progressByStep[step.ID]
		states = append(states, access.StepState{
			Sequence:  step.Sequence,
			Window:    stepWindow(session, step),
			Completed: row.Completed,
			Skippable: step.Skippable,
			Skipped:   row.Skipped,
			AllowRedo: step.AllowRedo,
		})
		if step.Sequence == sequence {
			targetIndex = len(states) - 1
		}
	}

	decision, err := access.Evaluate(states, sequence, now)
	if err != nil {
		if errors.Is(err, access.ErrUnknownStep) {
			return dto.AccessCheckResponse{}, ErrStepNotFound
		}
		return dto.AccessCheckResponse{}, err
	}

	observability.AccessDecisions().WithLabelValues(string(decision)).Inc()

	response := dto.AccessCheckResponse{
		Sequence:   sequence,
		Decision:   string(decision),
		Accessible: decision == access.Accessible,
		CheckedAt:  now,
	}
	if targetIndex >= 0 {
		response.WindowStart = states[targetIndex].Window.Start
		response.WindowEnd = states[targetIndex].Window.End
	}

	return response, nil
}

func (s *stepAccessService) PreviewWindows(ctx context.Context, sessionID uint) ([]dto.WindowPreviewResponse, error) {
	cacheKey := fmt.Sprintf("signlab:windows:%d", sessionID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var preview []dto.WindowPreviewResponse
			if err := json.Unmarshal([]byte(cached), &preview); err == nil {
				return preview, nil
			}
		}
	}

	session, steps, err := s.loadSessionSteps(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	preview := make([]dto.WindowPreviewResponse, 0, len(steps))
	for _, step := range steps {
		window := stepWindow(session, step)
		preview = append(preview, dto.WindowPreviewResponse{
			Sequence:    step.Sequence,
			Title:       step.Title,
			Type:        step.Type,
			WindowStart: window.Start,
			WindowEnd:   window.End,
		})
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if payload, err := json.Marshal(preview); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Uint("session_id", sessionID).Msg("failed to cache window preview")
			}
		}
	}

	return preview, nil
}

func (s *stepAccessService) loadSessionSteps(ctx context.Context, sessionID uint) (models.ClassSession, []models.ExperimentStep, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ClassSession{}, nil, ErrSessionNotFound
		}
		return models.ClassSession{}, nil, err
	}

	experiment, err := s.experiments.GetByID(ctx, session.ExperimentID)
	if err != nil {
		return models.ClassSession{}, nil, err
	}

	return session, experiment.Steps, nil
}

// stepWindow resolves one step's concrete window against the session anchor.
func stepWindow(session models.ClassSession, step models.ExperimentStep) schedule.Window {
	timing := &schedule.Timing{
		OffsetMinutes:   step.OffsetMinutes,
		DurationMinutes: step.DurationMinutes,
	}
	if step.HasExplicitWindow() {
		timing.ExplicitStart = step.StartTime
		timing.ExplicitEnd = step.EndTime
	}
	return schedule.ComputeWindow(session.StartTime, timing)
}
