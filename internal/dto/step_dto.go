package dto

import "time"

// AccessCheckResponse reports whether one step is accessible right now and,
// when timing applies, its concrete window.
type AccessCheckResponse struct {
	Sequence    int        `json:"sequence"`
	Decision    string     `json:"decision"`
	Accessible  bool       `json:"accessible"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
	CheckedAt   time.Time  `json:"checked_at"`
}

// StepProgressResponse reflects a student's stored state on one step after a
// completion or skip.
type StepProgressResponse struct {
	Sequence       int        `json:"sequence"`
	Completed      bool       `json:"completed"`
	Skipped        bool       `json:"skipped"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
	AttemptCount   int        `json:"attempt_count"`
}

// WindowPreviewResponse gives teachers the computed window of every step of a
// session, recomputed from the current anchor.
type WindowPreviewResponse struct {
	Sequence    int        `json:"sequence"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
}
