package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/csmht/signlab-api/internal/dto"
	"github.com/csmht/signlab-api/internal/models"
	"github.com/csmht/signlab-api/internal/repository"
)

var (
	ErrExperimentNotFound = errors.New("experiment not found")
	ErrDuplicateSequence  = errors.New("step sequence already in use")
	ErrInvalidOptions     = errors.New("question options are invalid")
	ErrEmptyContent       = errors.New("content empty after sanitization")
)

// Question options must be a JSON array of at least two non-empty strings.
const optionsSchemaDoc = `{
	"type": "array",
	"minItems": 2,
	"items": {"type": "string", "minLength": 1}
}`

// ExperimentService authors experiment templates, their ordered steps and
// quiz questions.
type ExperimentService interface {
	Create(ctx context.Context, payload dto.ExperimentCreateRequest) (dto.ExperimentResponse, error)
	Get(ctx context.Context, id uint) (dto.ExperimentResponse, error)
	ListByCourse(ctx context.Context, courseID uint) ([]dto.ExperimentResponse, error)
	AddStep(ctx context.Context, experimentID uint, payload dto.StepCreateRequest) (dto.StepResponse, error)
	AddQuestion(ctx context.Context, stepID uint, payload dto.QuestionCreateRequest) error
}

type experimentService struct {
	repo          repository.ExperimentRepository
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	optionsSchema *jsonschema.Schema
	logger        zerolog.Logger
}

// NewExperimentService constructs the authoring service.
func NewExperimentService(repo repository.ExperimentRepository, validate *validator.Validate, logger zerolog.Logger) ExperimentService {
	return &experimentService{
		repo:          repo,
		validator:     validate,
		sanitizer:     bluemonday.UGCPolicy(),
		optionsSchema: jsonschema.MustCompileString("options.json", optionsSchemaDoc),
		logger:        logger.With().Str("component", "experiment_service").Logger(),
	}
}

func (s *experimentService) Create(ctx context.Context, payload dto.ExperimentCreateRequest) (dto.ExperimentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ExperimentResponse{}, err
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if title == "" {
		return dto.ExperimentResponse{}, ErrEmptyContent
	}

	model := models.Experiment{
		CourseID:    payload.CourseID,
		Title:       title,
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		return dto.ExperimentResponse{}, err
	}

	s.logger.Info().Uint("experiment_id", model.ID).Uint("course_id", model.CourseID).Msg("experiment created")

	return dto.NewExperimentResponse(model), nil
}

func (s *experimentService) Get(ctx context.Context, id uint) (dto.ExperimentResponse, error) {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExperimentResponse{}, ErrExperimentNotFound
		}
		return dto.ExperimentResponse{}, err
	}

	return dto.NewExperimentResponse(model), nil
}

func (s *experimentService) ListByCourse(ctx context.Context, courseID uint) ([]dto.ExperimentResponse, error) {
	experiments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ExperimentResponse, 0, len(experiments))
	for _, experiment := range experiments {
		responses = append(responses, dto.NewExperimentResponse(experiment))
	}

	return responses, nil
}

func (s *experimentService) AddStep(ctx context.Context, experimentID uint, payload dto.StepCreateRequest) (dto.StepResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StepResponse{}, err
	}

	experiment, err := s.repo.GetByID(ctx, experimentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StepResponse{}, ErrExperimentNotFound
		}
		return dto.StepResponse{}, err
	}

	for _, existing := range experiment.Steps {
		if existing.Sequence == payload.Sequence {
			return dto.StepResponse{}, ErrDuplicateSequence
		}
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if title == "" {
		return dto.StepResponse{}, ErrEmptyContent
	}

	step := models.ExperimentStep{
		ExperimentID:         experiment.ID,
		Sequence:             payload.Sequence,
		Type:                 payload.Type,
		Title:                title,
		OffsetMinutes:        payload.OffsetMinutes,
		DurationMinutes:      payload.DurationMinutes,
		StartTime:            payload.StartTime,
		EndTime:              payload.EndTime,
		Skippable:            payload.Skippable,
		AllowRedo:            payload.AllowRedo,
		QuizTimeLimitMinutes: payload.QuizTimeLimitMinutes,
	}

	if err := s.repo.CreateStep(ctx, &step); err != nil {
		// The unique (experiment, sequence) index backs up the in-memory
		// check under concurrent authoring.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.StepResponse{}, ErrDuplicateSequence
		}
		return dto.StepResponse{}, err
	}

	return dto.NewStepResponse(step), nil
}

func (s *experimentService) AddQuestion(ctx context.Context, stepID uint, payload dto.QuestionCreateRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	step, err := s.repo.GetStep(ctx, stepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStepNotFound
		}
		return err
	}
	if step.Type != models.StepTypeQuiz {
		return ErrNotQuizStep
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return ErrEmptyContent
	}

	if len(payload.Options) > 0 {
		if err := s.validateOptions(payload.Options); err != nil {
			return err
		}
	}

	question := models.Question{
		ExperimentStepID: step.ID,
		Content:          content,
		Options:          datatypes.JSON(payload.Options),
		CorrectAnswer:    strings.TrimSpace(payload.CorrectAnswer),
	}

	return s.repo.CreateQuestion(ctx, &question)
}

func (s *experimentService) validateOptions(raw []byte) error {
	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return ErrInvalidOptions
	}
	if err := s.optionsSchema.Validate(instance); err != nil {
		return ErrInvalidOptions
	}
	return nil
}
