// Package access is the single source of truth for whether a student may enter
// an experiment step at a given instant. The evaluator never mutates anything;
// callers load step state, pass one clock reading, and act on the decision.
package access

import (
	"errors"
	"sort"
	"time"

	"github.com/csmht/signlab-api/internal/schedule"
)

// Decision is the outcome of one evaluation. Exactly one value applies per call.
type Decision string

const (
	Accessible           Decision = "ACCESSIBLE"
	PreviousNotCompleted Decision = "PREVIOUS_NOT_COMPLETED"
	NotStarted           Decision = "NOT_STARTED"
	Expired              Decision = "EXPIRED"
	AlreadyCompleted     Decision = "ALREADY_COMPLETED"
)

// ErrUnknownStep indicates the target sequence number is not part of the step
// list. This is a caller configuration defect, not a legitimate "not
// accessible" state.
var ErrUnknownStep = errors.New("unknown step sequence")

// StepState carries everything the evaluator needs to know about one step.
type StepState struct {
	Sequence  int
	Window    schedule.Window
	Completed bool
	Skippable bool
	Skipped   bool
	AllowRedo bool
}

// Evaluate decides accessibility of the step with the target sequence number.
// Precedence, first match wins: completion, then sequencing, then window start,
// then window end. Sequencing is checked before timing so a student cannot
// time into a step out of order. Steps marked both skippable and skipped do
// not block their successors.
func Evaluate(steps []StepState, targetSequence int, now time.Time) (Decision, error) {
	ordered := make([]StepState, len(steps))
	copy(ordered, steps)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	var target *StepState
	for i := range ordered {
		if ordered[i].Sequence == targetSequence {
			target = &ordered[i]
			break
		}
	}
	if target == nil {
		return "", ErrUnknownStep
	}

	if target.Completed && !target.AllowRedo {
		return AlreadyCompleted, nil
	}

	for _, step := range ordered {
		if step.Sequence >= targetSequence {
			break
		}
		if step.Skippable && step.Skipped {
			continue
		}
		if !step.Completed {
			return PreviousNotCompleted, nil
		}
	}

	if target.Window.Start != nil && now.Before(*target.Window.Start) {
		return NotStarted, nil
	}
	if target.Window.End != nil && now.After(*target.Window.End) {
		return Expired, nil
	}

	return Accessible, nil
}
