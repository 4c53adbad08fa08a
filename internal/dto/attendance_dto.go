package dto

import (
	"time"

	"github.com/csmht/signlab-api/internal/models"
)

// AttendanceCodeResponse carries one freshly issued QR payload. Clients render
// it as a QR image and re-request on the rotation interval.
type AttendanceCodeResponse struct {
	Code            string    `json:"code"`
	IssuedAt        time.Time `json:"issued_at"`
	ValidForSeconds int       `json:"valid_for_seconds"`
	RotateAfterSecs int       `json:"rotate_after_seconds"`
	MultiClass      bool      `json:"multi_class"`
}

// ScanRequest is a student's attendance scan submission.
type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}

// ScanResponse reports the accepted scan and its classification.
type ScanResponse struct {
	SessionID uint      `json:"session_id"`
	Status    string    `json:"status"`
	ScannedAt time.Time `json:"scanned_at"`
}

// AttendanceEvent is broadcast to live feed subscribers when a scan is accepted.
type AttendanceEvent struct {
	SessionID   uint      `json:"session_id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name"`
	Status      string    `json:"status"`
	ScannedAt   time.Time `json:"scanned_at"`
}

// AttendanceRecordResponse serializes one persisted attendance record.
type AttendanceRecordResponse struct {
	ID          uint      `json:"id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name,omitempty"`
	Status      string    `json:"status"`
	ScannedAt   time.Time `json:"scanned_at"`
}

// NewAttendanceRecordResponse converts an AttendanceRecord model into a DTO.
func NewAttendanceRecordResponse(model models.AttendanceRecord) AttendanceRecordResponse {
	response := AttendanceRecordResponse{
		ID:        model.ID,
		StudentID: model.StudentID,
		Status:    model.Status,
		ScannedAt: model.ScannedAt,
	}
	if model.Student.ID != 0 {
		response.StudentName = model.Student.Name
	}
	return response
}

// NewAttendanceRecordResponseSlice converts attendance models into DTOs.
func NewAttendanceRecordResponseSlice(records []models.AttendanceRecord) []AttendanceRecordResponse {
	responses := make([]AttendanceRecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewAttendanceRecordResponse(record))
	}
	return responses
}
