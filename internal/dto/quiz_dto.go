package dto

import "time"

// QuizStartResponse carries the freshly issued attempt token. The token is the
// complete attempt state; nothing else is recorded server side.
type QuizStartResponse struct {
	Token            string    `json:"token"`
	IssuedAt         time.Time `json:"issued_at"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
}

// QuizSubmitRequest carries the attempt token back together with the answers,
// keyed by question id.
type QuizSubmitRequest struct {
	Token   string            `json:"token" validate:"required"`
	Answers map[string]string `json:"answers" validate:"required"`
}

// QuizSubmitResponse reports the graded result.
type QuizSubmitResponse struct {
	Score          float64   `json:"score"`
	AllCorrect     bool      `json:"all_correct"`
	Completed      bool      `json:"completed"`
	RemainingMs    int64     `json:"remaining_ms"`
	CompletionTime time.Time `json:"completion_time"`
}
