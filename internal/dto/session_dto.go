package dto

import (
	"time"

	"github.com/csmht/signlab-api/internal/models"
)

// SessionCreateRequest schedules one run of an experiment. Start and end may
// be omitted and set later via reschedule.
type SessionCreateRequest struct {
	ExperimentID       uint       `json:"experiment_id" validate:"required,gt=0"`
	Code               string     `json:"code" validate:"omitempty,min=4,max=64"`
	StartTime          *time.Time `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	MultiClass         bool       `json:"multi_class"`
	ClassIDs           []uint     `json:"class_ids" validate:"omitempty,dive,gt=0"`
	LateAfterMinutes   int        `json:"late_after_minutes" validate:"omitempty,gte=0"`
	MakeupAfterMinutes int        `json:"makeup_after_minutes" validate:"omitempty,gte=0"`
}

// SessionRescheduleRequest moves a session's anchor window. Every relative
// step window follows on the next access check.
type SessionRescheduleRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

// SessionResponse serializes one class session.
type SessionResponse struct {
	ID                 uint       `json:"id"`
	Code               string     `json:"code"`
	ExperimentID       uint       `json:"experiment_id"`
	TeacherID          uint       `json:"teacher_id"`
	StartTime          *time.Time `json:"start_time,omitempty"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	MultiClass         bool       `json:"multi_class"`
	LateAfterMinutes   int        `json:"late_after_minutes"`
	MakeupAfterMinutes int        `json:"makeup_after_minutes"`
	ClassCodes         []string   `json:"class_codes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewSessionResponse converts a ClassSession model into a DTO.
func NewSessionResponse(model models.ClassSession) SessionResponse {
	return SessionResponse{
		ID:                 model.ID,
		Code:               model.Code,
		ExperimentID:       model.ExperimentID,
		TeacherID:          model.TeacherID,
		StartTime:          model.StartTime,
		EndTime:            model.EndTime,
		MultiClass:         model.MultiClass,
		LateAfterMinutes:   model.LateAfterMinutes,
		MakeupAfterMinutes: model.MakeupAfterMinutes,
		ClassCodes:         model.ClassCodes(),
		CreatedAt:          model.CreatedAt,
	}
}
