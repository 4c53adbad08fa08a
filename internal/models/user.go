package models

import "time"

// Roles known to the platform.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents a platform account. Students carry a home class.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	StudentNumber string    `gorm:"size:64;index" json:"student_number,omitempty"`
	Role          string    `gorm:"size:32;not null;default:student" json:"role"`
	ClassID       *uint     `gorm:"index" json:"class_id,omitempty"`
	Class         *Class    `json:"class,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
