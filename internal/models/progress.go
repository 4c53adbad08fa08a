package models

import (
	"time"

	"gorm.io/datatypes"
)

// StepProgress tracks one student's state on one step of a session. Rows are
// created on first submission and updated in place; AttemptCount preserves
// resubmission evidence. The unique (session, student, step) index doubles as
// the single-use guard for timed quiz submissions.
type StepProgress struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	SessionID uint `gorm:"not null;uniqueIndex:idx_session_student_step" json:"session_id"`
	StudentID uint `gorm:"not null;uniqueIndex:idx_session_student_step" json:"student_id"`
	StepID    uint `gorm:"not null;uniqueIndex:idx_session_student_step" json:"step_id"`

	Completed      bool       `gorm:"not null;default:false" json:"completed"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
	Skipped        bool       `gorm:"not null;default:false" json:"skipped"`

	// Locked is set once a timed submission has been accepted; a locked row
	// rejects further quiz submissions for this step.
	Locked   bool       `gorm:"not null;default:false" json:"locked"`
	LockedAt *time.Time `json:"locked_at,omitempty"`

	AttemptCount int            `gorm:"not null;default:0" json:"attempt_count"`
	Score        *float64       `json:"score,omitempty"`
	Answers      datatypes.JSON `json:"answers,omitempty"`
	ReportURL    string         `gorm:"size:512" json:"report_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
