package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/models"
)

func newExperimentService(t *testing.T) (ExperimentService, *memoryExperimentRepo) {
	t.Helper()
	repo := newMemoryExperimentRepo()
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewExperimentService(repo, validate, testLogger()), repo
}

func TestExperimentServiceCreateSanitizes(t *testing.T) {
	svc, _ := newExperimentService(t)

	created, err := svc.Create(context.Background(), dto.ExperimentCreateRequest{
		CourseID:    7,
		Title:       "Pendulum <script>alert(1)</script>Basics",
		Description: "Measure the period",
	})
	require.NoError(t, err)
	require.Equal(t, "Pendulum Basics", created.Title)
	require.Equal(t, "Measure the period", created.Description)
}

func TestExperimentServiceAddStepRejectsDuplicateSequence(t *testing.T) {
	svc, _ := newExperimentService(t)

	created, err := svc.Create(context.Background(), dto.ExperimentCreateRequest{
		CourseID: 7,
		Title:    "Pendulum Basics",
	})
	require.NoError(t, err)

	step := dto.StepCreateRequest{
		Sequence:        1,
		Type:            models.StepTypeVideo,
		Title:           "Intro video",
		OffsetMinutes:   intPtr(0),
		DurationMinutes: intPtr(30),
	}
	_, err = svc.AddStep(context.Background(), created.ID, step)
	require.NoError(t, err)

	step.Title = "Second step, same slot"
	_, err = svc.AddStep(context.Background(), created.ID, step)
	require.ErrorIs(t, err, ErrDuplicateSequence)
}

func TestExperimentServiceAddStepExplicitWindow(t *testing.T) {
	svc, repo := newExperimentService(t)

	created, err := svc.Create(context.Background(), dto.ExperimentCreateRequest{
		CourseID: 7,
		Title:    "Pendulum Basics",
	})
	require.NoError(t, err)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	added, err := svc.AddStep(context.Background(), created.ID, dto.StepCreateRequest{
		Sequence:  1,
		Type:      models.StepTypeData,
		Title:     "Record measurements",
		StartTime: &start,
		EndTime:   &end,
	})
	require.NoError(t, err)
	require.NotNil(t, added.StartTime)

	experiment, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, experiment.Steps[0].HasExplicitWindow())
}

func TestExperimentServiceAddQuestionValidatesOptions(t *testing.T) {
	svc, _ := newExperimentService(t)

	created, err := svc.Create(context.Background(), dto.ExperimentCreateRequest{
		CourseID: 7,
		Title:    "Pendulum Basics",
	})
	require.NoError(t, err)

	added, err := svc.AddStep(context.Background(), created.ID, dto.StepCreateRequest{
		Sequence: 1,
		Type:     models.StepTypeQuiz,
		Title:    "Checkpoint quiz",
	})
	require.NoError(t, err)

	err = svc.AddQuestion(context.Background(), added.ID, dto.QuestionCreateRequest{
		Content:       "What is measured?",
		Options:       json.RawMessage(`["period", "mass", "color"]`),
		CorrectAnswer: "period",
	})
	require.NoError(t, err)

	// A single option is not a usable objective question.
	err = svc.AddQuestion(context.Background(), added.ID, dto.QuestionCreateRequest{
		Content:       "Broken question",
		Options:       json.RawMessage(`["only one"]`),
		CorrectAnswer: "only one",
	})
	require.ErrorIs(t, err, ErrInvalidOptions)

	err = svc.AddQuestion(context.Background(), added.ID, dto.QuestionCreateRequest{
		Content:       "Also broken",
		Options:       json.RawMessage(`{"a": 1}`),
		CorrectAnswer: "a",
	})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestExperimentServiceAddQuestionRequiresQuizStep(t *testing.T) {
	svc, _ := newExperimentService(t)

	created, err := svc.Create(context.Background(), dto.ExperimentCreateRequest{
		CourseID: 7,
		Title:    "Pendulum Basics",
	})
	require.NoError(t, err)

	added, err := svc.AddStep(context.Background(), created.ID, dto.StepCreateRequest{
		Sequence: 1,
		Type:     models.StepTypeVideo,
		Title:    "Intro video",
	})
	require.NoError(t, err)

	err = svc.AddQuestion(context.Background(), added.ID, dto.QuestionCreateRequest{
		Content:       "Should fail",
		CorrectAnswer: "n/a",
	})
	require.ErrorIs(t, err, ErrNotQuizStep)
}
