package models

import "time"

// AttendanceRecord is one accepted scan. The unique (session, student) index
// makes duplicate scans a constraint violation rather than a race.
type AttendanceRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;uniqueIndex:idx_session_student" json:"session_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_session_student" json:"student_id"`
	Student   User      `json:"student,omitempty"`
	ClassID   *uint     `json:"class_id,omitempty"`
	Status    string    `gorm:"size:32;not null" json:"status"`
	ScannedAt time.Time `gorm:"not null" json:"scanned_at"`
	CreatedAt time.Time `json:"created_at"`
}
