package dto

import (
	"encoding/json"
	"time"

	"github.com/csmht/signlab-api/internal/models"
)

// ExperimentCreateRequest describes the payload for creating an experiment template.
type ExperimentCreateRequest struct {
	CourseID    uint   `json:"course_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty"`
}

// StepCreateRequest adds one ordered step to an experiment. Either the
// offset/duration pair or the explicit start/end pair configures timing.
type StepCreateRequest struct {
	Sequence             int        `json:"sequence" validate:"required,gt=0"`
	Type                 string     `json:"type" validate:"required,oneof=video data quiz report"`
	Title                string     `json:"title" validate:"required,min=1,max=255"`
	OffsetMinutes        *int       `json:"offset_minutes"`
	DurationMinutes      *int       `json:"duration_minutes"`
	StartTime            *time.Time `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	Skippable            bool       `json:"skippable"`
	AllowRedo            bool       `json:"allow_redo"`
	QuizTimeLimitMinutes *int       `json:"quiz_time_limit_minutes" validate:"omitempty,gt=0"`
}

// QuestionCreateRequest adds one objective question to a quiz step.
type QuestionCreateRequest struct {
	Content       string          `json:"content" validate:"required,min=1"`
	Options       json.RawMessage `json:"options"`
	CorrectAnswer string          `json:"correct_answer" validate:"required,min=1"`
}

// ExperimentResponse is returned to API clients when viewing experiments.
type ExperimentResponse struct {
	ID          uint           `json:"id"`
	CourseID    uint           `json:"course_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Steps       []StepResponse `json:"steps,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// StepResponse summarizes one experiment step.
type StepResponse struct {
	ID                   uint       `json:"id"`
	Sequence             int        `json:"sequence"`
	Type                 string     `json:"type"`
	Title                string     `json:"title"`
	OffsetMinutes        *int       `json:"offset_minutes,omitempty"`
	DurationMinutes      *int       `json:"duration_minutes,omitempty"`
	StartTime            *time.Time `json:"start_time,omitempty"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	Skippable            bool       `json:"skippable"`
	AllowRedo            bool       `json:"allow_redo"`
	QuizTimeLimitMinutes *int       `json:"quiz_time_limit_minutes,omitempty"`
	QuestionCount        int        `json:"question_count"`
}

// NewExperimentResponse converts an Experiment model into a DTO.
func NewExperimentResponse(model models.Experiment) ExperimentResponse {
	response := ExperimentResponse{
		ID:          model.ID,
		CourseID:    model.CourseID,
		Title:       model.Title,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	for _, step := range model.Steps {
		response.Steps = append(response.Steps, NewStepResponse(step))
	}

	return response
}

// NewStepResponse converts an ExperimentStep model into a DTO.
func NewStepResponse(model models.ExperimentStep) StepResponse {
	return StepResponse{
		ID:                   model.ID,
		Sequence:             model.Sequence,
		Type:                 model.Type,
		Title:                model.Title,
		OffsetMinutes:        model.OffsetMinutes,
		DurationMinutes:      model.DurationMinutes,
		StartTime:            model.StartTime,
		EndTime:              model.EndTime,
		Skippable:            model.Skippable,
		AllowRedo:            model.AllowRedo,
		QuizTimeLimitMinutes: model.QuizTimeLimitMinutes,
		QuestionCount:        len(model.Questions),
	}
}
