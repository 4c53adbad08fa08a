// Package scoring grades objective quiz submissions against canonical answers.
package scoring

import (
	"math"
	"strings"
)

// Question pairs a question identifier with its canonical answer.
type Question struct {
	ID            string
	CorrectAnswer string
}

// Score returns the percentage of correct answers, rounded half-up to two
// decimals. A missing student answer counts as incorrect, never as an error.
// An empty question list scores zero.
func Score(answers map[string]string, questions []Question) float64 {
	if len(questions) == 0 {
		return 0
	}

	correct := 0
	for _, question := range questions {
		if matches(answers[question.ID], question.CorrectAnswer) {
			correct++
		}
	}

	percentage := float64(correct) / float64(len(questions)) * 100
	return math.Floor(percentage*100+0.5) / 100
}

// AllCorrect is a strict AND over all questions. An empty question list is
// defined as not all correct, so a misconfigured empty quiz can never present
// as a perfect score.
func AllCorrect(answers map[string]string, questions []Question) bool {
	if len(questions) == 0 {
		return false
	}

	for _, question := range questions {
		if !matches(answers[question.ID], question.CorrectAnswer) {
			return false
		}
	}

	return true
}

func matches(submitted, correct string) bool {
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return false
	}
	return submitted == strings.TrimSpace(correct)
}
