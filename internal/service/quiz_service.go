package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/observability"
	"github.com/csmht/signlab-api/internal/quiztoken"
	"github.com/csmht/signlab-api/internal/repository"
	"github.com/csmht/signlab-api/internal/scoring"
)

var (
	ErrNotQuizStep          = errors.New("step is not a quiz")
	ErrQuizAlreadySubmitted = errors.New("quiz already submitted")
	ErrQuizTokenInvalid     = errors.New("quiz token invalid")
	ErrQuizTokenExpired     = errors.New("quiz time limit exceeded")
)

// StepNotAccessibleError reports why an attempted step operation was refused.
type StepNotAccessibleError struct {
	Decision string
}

func (e *StepNotAccessibleError) Error() string {
	return fmt.Sprintf("step not accessible: %s", e.Decision)
}

// QuizService runs timed quiz attempts. The attempt token is the whole attempt
// state; the server stores nothing between Start and Submit. Submission locks
// the progress row, which is what makes a token single use.
type QuizService interface {
	Start(ctx context.Context, studentID, sessionID uint, sequence int) (dto.QuizStartResponse, error)
	Submit(ctx context.Context, studentID, sessionID uint, sequence int, payload dto.QuizSubmitRequest) (dto.QuizSubmitResponse, error)
}

type quizService struct {
	accessSvc    StepAccessService
	sessions     repository.SessionRepository
	experiments  repository.ExperimentRepository
	progress     repository.ProgressRepository
	protocol     *quiztoken.Protocol
	defaultLimit time.Duration
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewQuizService constructs the quiz service. defaultLimit applies to quiz
// steps that carry no limit of their own.
func NewQuizService(
	accessSvc StepAccessService,
	sessions repository.SessionRepository,
	experiments repository.ExperimentRepository,
	progress repository.ProgressRepository,
	protocol *quiztoken.Protocol,
	defaultLimit time.Duration,
	validate *validator.Validate,
	logger zerolog.Logger,
) QuizService {
	return &quizService{
		accessSvc:    accessSvc,
		sessions:     sessions,
		experiments:  experiments,
		progress:     progress,
		protocol:     protocol,
		defaultLimit: defaultLimit,
		validator:    validate,
		logger:       logger.With().Str("component", "quiz_service").Logger(),
		tracer:       otel.Tracer("github.com/csmht/signlab-api/internal/service/quiz"),
		now:          time.Now,
	}
}

func (s *quizService) Start(ctx context.Context, studentID, sessionID uint, sequence int) (dto.QuizStartResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "quiz.start", trace.WithAttributes(
		attribute.Int64("session.id", int64(sessionID)),
		attribute.Int("step.sequence", sequence),
	))
	defer span.End()

	session, step, err := s.quizStep(spanCtx, sessionID, sequence)
	if err != nil {
		span.RecordError(err)
		return dto.QuizStartResponse{}, err
	}

	// The lock check runs first so a resubmission attempt reads as a
	// duplicate rather than a generic ALREADY_COMPLETED refusal.
	row, err := s.progress.Get(spanCtx, session.ID, studentID, step.ID)
	if err == nil && row.Locked {
		return dto.QuizStartResponse{}, ErrQuizAlreadySubmitted
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		return dto.QuizStartResponse{}, err
	}

	check, err := s.accessSvc.CheckAccess(spanCtx, studentID, sessionID, sequence)
	if err != nil {
		span.RecordError(err)
		return dto.QuizStartResponse{}, err
	}
	if !check.Accessible {
		return dto.QuizStartResponse{}, &StepNotAccessibleError{Decision: check.Decision}
	}

	token, err := s.protocol.Issue(attemptSubject(studentID, step.ID))
	if err != nil {
		span.RecordError(err)
		return dto.QuizStartResponse{}, err
	}

	observability.QuizTokensIssued().Inc()

	limit := s.limitFor(step)
	return dto.QuizStartResponse{
		Token:            token,
		IssuedAt:         s.now(),
		TimeLimitMinutes: int(limit / time.Minute),
	}, nil
}

func (s *quizService) Submit(ctx context.Context, studentID, sessionID uint, sequence int, payload dto.QuizSubmitRequest) (dto.QuizSubmitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizSubmitResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "quiz.submit", trace.WithAttributes(
		attribute.Int64("session.id", int64(sessionID)),
		attribute.Int("step.sequence", sequence),
	))
	defer span.End()

	session, step, err := s.quizStep(spanCtx, sessionID, sequence)
	if err != nil {
		span.RecordError(err)
		return dto.QuizSubmitResponse{}, err
	}

	verification := s.protocol.Verify(payload.Token, attemptSubject(studentID, step.ID), s.limitFor(step))
	observability.QuizVerifications().WithLabelValues(verificationResult(verification)).Inc()
	if !verification.Valid {
		// An identity mismatch surfaces as expiry so the response does not
		// reveal which check rejected the token.
		switch verification.Reason {
		case quiztoken.ReasonExpired, quiztoken.ReasonMismatch:
			return dto.QuizSubmitResponse{}, ErrQuizTokenExpired
		default:
			return dto.QuizSubmitResponse{}, ErrQuizTokenInvalid
		}
	}

	row, err := s.progress.Get(spanCtx, session.ID, studentID, step.ID)
	switch {
	case err == nil:
		if row.Locked {
			return dto.QuizSubmitResponse{}, ErrQuizAlreadySubmitted
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.StepProgress{
			SessionID: session.ID,
			StudentID: studentID,
			StepID:    step.ID,
		}
	default:
		span.RecordError(err)
		return dto.QuizSubmitResponse{}, err
	}

	questions := make([]scoring.Question, 0, len(step.Questions))
	for _, question := range step.Questions {
		questions = append(questions, scoring.Question{
			ID:            strconv.FormatUint(uint64(question.ID), 10),
			CorrectAnswer: question.CorrectAnswer,
		})
	}

	score := scoring.Score(payload.Answers, questions)
	allCorrect := scoring.AllCorrect(payload.Answers, questions)

	answersJSON, err := json.Marshal(payload.Answers)
	if err != nil {
		return dto.QuizSubmitResponse{}, err
	}

	completedAt := s.now()
	row.Completed = true
	row.CompletionTime = &completedAt
	row.Locked = true
	row.LockedAt = &completedAt
	row.AttemptCount++
	row.Score = &score
	row.Answers = datatypes.JSON(answersJSON)

	if row.ID == 0 {
		err = s.progress.Create(spanCtx, &row)
	} else {
		err = s.progress.Update(spanCtx, &row)
	}
	if err != nil {
		span.RecordError(err)
		// A concurrent submission can win the unique index race; treat the
		// loser as a duplicate rather than a server fault.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.QuizSubmitResponse{}, ErrQuizAlreadySubmitted
		}
		return dto.QuizSubmitResponse{}, err
	}

	s.logger.Info().
		Uint("student_id", studentID).
		Uint("session_id", session.ID).
		Int("sequence", sequence).
		Float64("score", score).
		Msg("quiz submission graded")

	return dto.QuizSubmitResponse{
		Score:          score,
		AllCorrect:     allCorrect,
		Completed:      true,
		RemainingMs:    verification.Remaining.Milliseconds(),
		CompletionTime: completedAt,
	}, nil
}

// quizStep resolves a session's quiz step by sequence.
func (s *quizService) quizStep(ctx context.Context, sessionID uint, sequence int) (models.ClassSession, models.ExperimentStep, error) {
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
			if step.Type != models.StepTypeQuiz {
				return models.ClassSession{}, models.ExperimentStep{}, ErrNotQuizStep
			}
			return session, step, nil
		}
	}

	return models.ClassSession{}, models.ExperimentStep{}, ErrStepNotFound
}

func (s *quizService) limitFor(step models.ExperimentStep) time.Duration {
	if step.QuizTimeLimitMinutes != nil && *step.QuizTimeLimitMinutes > 0 {
		return time.Duration(*step.QuizTimeLimitMinutes) * time.Minute
	}
	return s.defaultLimit
}

// attemptSubject binds a token to both the student and the step so a token
// issued for one quiz cannot be replayed against another.
func attemptSubject(studentID, stepID uint) string {
	return fmt.Sprintf("%d:%d", studentID, stepID)
}

func verificationResult(v quiztoken.Verification) string {
	if v.Valid {
		return "valid"
	}
	return v.Reason
}
