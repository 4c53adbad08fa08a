package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/csmht/signlab-api/internal/quiztoken"
	"github.com/csmht/signlab-api/pkg/blockcipher"
)

type progressFixture struct {
	svc         *progressService
	accessSvc   *stepAccessService
	quizSvc     *quizService
	experiments *memoryExperimentRepo
	sessionID   uint
	anchor      time.Time
}

func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()

	sessions := newMemorySessionRepo()
	experiments := newMemoryExperimentRepo()
	progress := newMemoryProgressRepo()

	anchor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sessionID := seedSessionFixture(t, sessions, experiments, anchor)

	accessSvc := NewStepAccessService(sessions, experiments, progress, nil, 0, testLogger()).(*stepAccessService)
	accessSvc.now = func() time.Time { return anchor.Add(10 * time.Minute) }

	cipher, err := blockcipher.New([]byte("quiz-secret"))
	require.NoError(t, err)
	protocol := quiztoken.New(cipher, 5*time.Minute)
	validate := validator.New(validator.WithRequiredStructEnabled())
	quizSvc := NewQuizService(accessSvc, sessions, experiments, progress, protocol, 20*time.Minute, validate, testLogger()).(*quizService)

	svc := NewProgressService(accessSvc, sessions, experiments, progress, testLogger()).(*progressService)
	svc.now = func() time.Time { return anchor.Add(10 * time.Minute) }

	return &progressFixture{
		svc:         svc,
		accessSvc:   accessSvc,
		quizSvc:     quizSvc,
		experiments: experiments,
		sessionID:   sessionID,
		anchor:      anchor,
	}
}

func TestProgressServiceCompleteUnblocksNextStep(t *testing.T) {
	fx := newProgressFixture(t)

	// No progress is seeded: the video completes through the service, and
	// only then does the quiz open.
	result, err := fx.svc.Complete(context.Background(), 100, fx.sessionID, 1)
	require.NoError(t, err)
	require.True(t, result.Completed)
	require.Equal(t, 1, result.AttemptCount)
	require.NotNil(t, result.CompletionTime)

	fx.accessSvc.now = func() time.Time { return fx.anchor.Add(40 * time.Minute) }
	started, err := fx.quizSvc.Start(context.Background(), 100, fx.sessionID, 2)
	require.NoError(t, err)
	require.NotEmpty(t, started.Token)
}

func TestProgressServiceCompleteWithoutItStaysBlocked(t *testing.T) {
	fx := newProgressFixture(t)

	fx.accessSvc.now = func() time.Time { return fx.anchor.Add(40 * time.Minute) }
	_, err := fx.quizSvc.Start(context.Background(), 100, fx.sessionID, 2)

	var notAccessible *StepNotAccessibleError
	require.ErrorAs(t, err, &notAccessible)
	require.Equal(t, "PREVIOUS_NOT_COMPLETED", notAccessible.Decision)
}

func TestProgressServiceCompleteRejectsQuizStep(t *testing.T) {
	fx := newProgressFixture(t)

	_, err := fx.svc.Complete(context.Background(), 100, fx.sessionID, 2)
	require.ErrorIs(t, err, ErrNotCompletableStep)
}

func TestProgressServiceCompleteBeforeWindowOpens(t *testing.T) {
	fx := newProgressFixture(t)
	fx.accessSvc.now = func() time.Time { return fx.anchor.Add(-10 * time.Minute) }

	_, err := fx.svc.Complete(context.Background(), 100, fx.sessionID, 1)

	var notAccessible *StepNotAccessibleError
	require.ErrorAs(t, err, &notAccessible)
	require.Equal(t, "NOT_STARTED", notAccessible.Decision)
}

func TestProgressServiceCompleteTwice(t *testing.T) {
	fx := newProgressFixture(t)

	_, err := fx.svc.Complete(context.Background(), 100, fx.sessionID, 1)
	require.NoError(t, err)

	_, err = fx.svc.Complete(context.Background(), 100, fx.sessionID, 1)
	require.ErrorIs(t, err, ErrStepAlreadyCompleted)
}

func TestProgressServiceSkipMissedWindow(t *testing.T) {
	fx := newProgressFixture(t)
	fx.markVideoSkippable(t)

	// The video window closed at anchor+30; the student skips it and moves
	// straight to the quiz.
	fx.accessSvc.now = func() time.Time { return fx.anchor.Add(40 * time.Minute) }

	result, err := fx.svc.Skip(context.Background(), 100, fx.sessionID, 1)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.False(t, result.Completed)

	check, err := fx.accessSvc.CheckAccess(context.Background(), 100, fx.sessionID, 2)
	require.NoError(t, err)
	require.Equal(t, "ACCESSIBLE", check.Decision)
}

func TestProgressServiceSkipRejectsNonSkippable(t *testing.T) {
	fx := newProgressFixture(t)

	_, err := fx.svc.Skip(context.Background(), 100, fx.sessionID, 1)
	require.ErrorIs(t, err, ErrStepNotSkippable)
}

func TestProgressServiceSkipRejectsCompletedStep(t *testing.T) {
	fx := newProgressFixture(t)
	fx.markVideoSkippable(t)

	_, err := fx.svc.Complete(context.Background(), 100, fx.sessionID, 1)
	require.NoError(t, err)

	_, err = fx.svc.Skip(context.Background(), 100, fx.sessionID, 1)
	require.ErrorIs(t, err, ErrStepAlreadyCompleted)
}

func TestProgressServiceSkipRejectsFutureStep(t *testing.T) {
	fx := newProgressFixture(t)
	fx.markVideoSkippable(t)
	fx.accessSvc.now = func() time.Time { return fx.anchor.Add(-10 * time.Minute) }

	_, err := fx.svc.Skip(context.Background(), 100, fx.sessionID, 1)

	var notAccessible *StepNotAccessibleError
	require.ErrorAs(t, err, &notAccessible)
	require.Equal(t, "NOT_STARTED", notAccessible.Decision)
}

func TestProgressServiceUnknownStep(t *testing.T) {
	fx := newProgressFixture(t)

	_, err := fx.svc.Complete(context.Background(), 100, fx.sessionID, 9)
	require.ErrorIs(t, err, ErrStepNotFound)

	_, err = fx.svc.Complete(context.Background(), 100, 99, 1)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func (fx *progressFixture) markVideoSkippable(t *testing.T) {
	t.Helper()
	experiment, ok := fx.experiments.experiments[1]
	require.True(t, ok)
	experiment.Steps[0].Skippable = true
	fx.experiments.experiments[1] = experiment
}
