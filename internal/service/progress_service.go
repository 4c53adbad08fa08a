package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/access"
	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/repository"
)

var (
	ErrNotCompletableStep   = errors.New("step does not complete by acknowledgement")
	ErrStepNotSkippable     = errors.New("step is not skippable")
	ErrStepAlreadyCompleted = errors.New("step already completed")
)

// ProgressService finishes the steps that carry no submission of their own.
// Video and data-collection steps complete by acknowledgement; quiz and report
// steps complete through their own services. Skippable steps can be skipped
// instead, which stops them from blocking their successors.
type ProgressService interface {
	Complete(ctx context.Context, studentID, sessionID uint, sequence int) (dto.StepProgressResponse, error)
	Skip(ctx context.Context, studentID, sessionID uint, sequence int) (dto.StepProgressResponse, error)
}

type progressService struct {
	accessSvc   StepAccessService
	sessions    repository.SessionRepository
	experiments repository.ExperimentRepository
	progress    repository.ProgressRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProgressService constructs the progress service.
func NewProgressService(
	accessSvc StepAccessService,
	sessions repository.SessionRepository,
	experiments repository.ExperimentRepository,
	progress repository.ProgressRepository,
	logger zerolog.Logger,
) ProgressService {
	return &progressService{
		accessSvc:   accessSvc,
		sessions:    sessions,
		experiments: experiments,
		progress:    progress,
		logger:      logger.With().Str("component", "progress_service").Logger(),
		now:         time.Now,
	}
}

func (s *progressService) Complete(ctx context.Context, studentID, sessionID uint, sequence int) (dto.StepProgressResponse, error) {
	session, step, err := s.sessionStep(ctx, sessionID, sequence)
	if err != nil {
		return dto.StepProgressResponse{}, err
	}
	if step.Type != models.StepTypeVideo && step.Type != models.StepTypeData {
		return dto.StepProgressResponse{}, ErrNotCompletableStep
	}

	check, err := s.accessSvc.CheckAccess(ctx, studentID, sessionID, sequence)
	if err != nil {
		return dto.StepProgressResponse{}, err
	}
	if !check.Accessible {
		if check.Decision == string(access.AlreadyCompleted) {
			return dto.StepProgressResponse{}, ErrStepAlreadyCompleted
		}
		return dto.StepProgressResponse{}, &StepNotAccessibleError{Decision: check.Decision}
	}

	row, err := s.loadOrInitRow(ctx, session.ID, studentID, step.ID)
	if err != nil {
		return dto.StepProgressResponse{}, err
	}

	completedAt := s.now()
	row.Completed = true
	row.CompletionTime = &completedAt
	row.Skipped = false
	row.AttemptCount++

	if err := s.saveRow(ctx, &row); err != nil {
		return dto.StepProgressResponse{}, err
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Uint("session_id", session.ID).
		Int("sequence", sequence).
		Msg("step completed")

	return progressResponse(sequence, row), nil
}

func (s *progressService) Skip(ctx context.Context, studentID, sessionID uint, sequence int) (dto.StepProgressResponse, error) {
	session, step, err := s.sessionStep(ctx, sessionID, sequence)
	if err != nil {
		return dto.StepProgressResponse{}, err
	}
	if !step.Skippable {
		return dto.StepProgressResponse{}, ErrStepNotSkippable
	}

	check, err := s.accessSvc.CheckAccess(ctx, studentID, sessionID, sequence)
	if err != nil {
		return dto.StepProgressResponse{}, err
	}
	// A skip is valid while the step is open and after its window closed;
	// skipping past a missed window is the point. Sequencing and the
	// window start still apply.
	switch check.Decision {
	case string(access.Accessible), string(access.Expired):
	case string(access.AlreadyCompleted):
		return dto.StepProgressResponse{}, ErrStepAlreadyCompleted
	default:
		return dto.StepProgressResponse{}, &StepNotAccessibleError{Decision: check.Decision}
	}

	row, err := s.loadOrInitRow(ctx, session.ID, studentID, step.ID)
	if err != nil {
		return dto.StepProgressResponse{}, err
	}
	if row.Completed {
		return dto.StepProgressResponse{}, ErrStepAlreadyCompleted
	}

	row.Skipped = true

	if err := s.saveRow(ctx, &row); err != nil {
		return dto.StepProgressResponse{}, err
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Uint("session_id", session.ID).
		Int("sequence", sequence).
		Msg("step skipped")

	return progressResponse(sequence, row), nil
}

// sessionStep resolves a session's step by sequence, any type.
func (s *progressService) sessionStep(ctx context.Context, sessionID uint, sequence int) (models.ClassSession, models.ExperimentStep, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ClassSession{}, models.ExperimentStep{}, ErrSessionNotFound
		}
		return models.ClassSession{}, models.ExperimentStep{}, err
	}

	experiment, err := s.experiments.GetByID(ctx, session.ExperimentID)
	if err != nil {
		return models.ClassSession{}, models.ExperimentStep{}, err
	}

	for _, step := range experiment.Steps {
		if step.Sequence == sequence {
			return session, step, nil
		}
	}

	return models.ClassSession{}, models.ExperimentStep{}, ErrStepNotFound
}

func (s *progressService) loadOrInitRow(ctx context.Context, sessionID, studentID, stepID uint) (models.StepProgress, error) {
	row, err := s.progress.Get(ctx, sessionID, studentID, stepID)
	switch {
	case err == nil:
		return row, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.StepProgress{
			SessionID: sessionID,
			StudentID: studentID,
			StepID:    stepID,
		}, nil
	default:
		return models.StepProgress{}, err
	}
}

func (s *progressService) saveRow(ctx context.Context, row *models.StepProgress) error {
	if row.ID == 0 {
		return s.progress.Create(ctx, row)
	}
	return s.progress.Update(ctx, row)
}

func progressResponse(sequence int, row models.StepProgress) dto.StepProgressResponse {
	return dto.StepProgressResponse{
		Sequence:       sequence,
		Completed:      row.Completed,
		Skipped:        row.Skipped,
		CompletionTime: row.CompletionTime,
		AttemptCount:   row.AttemptCount,
	}
}
