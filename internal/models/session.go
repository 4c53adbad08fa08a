package models

import "time"

// ClassSession is one scheduled run of an experiment: the anchor from which
// every relative step window is computed. Start and end stay nil until a
// teacher schedules the session; a nil anchor is a legitimate "not yet
// schedulable" state, not an error.
type ClassSession struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Code         string     `gorm:"size:64;uniqueIndex;not null" json:"code"`
	ExperimentID uint       `gorm:"not null;index" json:"experiment_id"`
	Experiment   Experiment `json:"experiment,omitempty"`
	TeacherID    uint       `gorm:"not null;index" json:"teacher_id"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`

	// MultiClass opens attendance to students outside the bound classes;
	// their scans classify as cross-class.
	MultiClass bool `gorm:"not null;default:false" json:"multi_class"`

	// Attendance thresholds in minutes from the anchor start. Zero disables
	// the corresponding classification.
	LateAfterMinutes   int `gorm:"not null;default:0" json:"late_after_minutes"`
	MakeupAfterMinutes int `gorm:"not null;default:0" json:"makeup_after_minutes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Classes   []SessionClass `gorm:"foreignKey:SessionID" json:"classes,omitempty"`
}

// SessionClass binds one class to a session.
type SessionClass struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	SessionID uint  `gorm:"not null;uniqueIndex:idx_session_class" json:"session_id"`
	ClassID   uint  `gorm:"not null;uniqueIndex:idx_session_class" json:"class_id"`
	Class     Class `json:"class,omitempty"`
}

// ClassCodes lists the codes of all bound classes.
func (s ClassSession) ClassCodes() []string {
	codes := make([]string, 0, len(s.Classes))
	for _, binding := range s.Classes {
		if binding.Class.Code != "" {
			codes = append(codes, binding.Class.Code)
		}
	}
	return codes
}
