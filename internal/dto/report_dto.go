package dto

import "time"

// ReportUploadResponse confirms a stored report and the resulting step completion.
type ReportUploadResponse struct {
	FileURL        string    `json:"file_url"`
	Completed      bool      `json:"completed"`
	CompletionTime time.Time `json:"completion_time"`
}
