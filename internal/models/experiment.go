package models

import (
	"time"

	"gorm.io/datatypes"
)

// Step types supported by experiment templates.
const (
	StepTypeVideo  = "video"
	StepTypeData   = "data"
	StepTypeQuiz   = "quiz"
	StepTypeReport = "report"
)

// Experiment is a reusable template of ordered steps for one course.
type Experiment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	CourseID    uint             `gorm:"not null;index" json:"course_id"`
	Course      Course           `json:"course,omitempty"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Steps       []ExperimentStep `json:"steps,omitempty"`
}

// ExperimentStep is one ordered step within an experiment template. Timing is
// either relative (offset/duration from the session anchor) or explicit
// (start/end instants); explicit wins when present. Sequence numbers are
// unique per experiment, enforced at authoring time.
type ExperimentStep struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ExperimentID uint   `gorm:"not null;uniqueIndex:idx_experiment_sequence" json:"experiment_id"`
	Sequence     int    `gorm:"not null;uniqueIndex:idx_experiment_sequence" json:"sequence"`
	Type         string `gorm:"size:32;not null" json:"type"`
	Title        string `gorm:"size:255;not null" json:"title"`

	OffsetMinutes   *int       `json:"offset_minutes,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`

	Skippable            bool `gorm:"not null;default:false" json:"skippable"`
	AllowRedo            bool `gorm:"not null;default:false" json:"allow_redo"`
	QuizTimeLimitMinutes *int `json:"quiz_time_limit_minutes,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Questions []Question `json:"questions,omitempty"`
}

// HasExplicitWindow reports whether the step overrides the relative timing form.
func (s ExperimentStep) HasExplicitWindow() bool {
	return s.StartTime != nil || s.EndTime != nil
}

// Question is one objective quiz item with its canonical answer.
type Question struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ExperimentStepID uint           `gorm:"not null;index" json:"experiment_step_id"`
	Content          string         `gorm:"type:text;not null" json:"content"`
	Options          datatypes.JSON `json:"options,omitempty"`
	CorrectAnswer    string         `gorm:"size:255;not null" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
