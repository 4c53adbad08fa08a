package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/csmht/signlab-api/internal/schedule"
)

func window(start, end time.Time) schedule.Window {
	return schedule.Window{Start: &start, End: &end}
}

func TestEvaluateAccessibleInsideWindow(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	steps := []StepState{
		{Sequence: 1, Window: window(anchor, anchor.Add(30*time.Minute)), Completed: true},
		{Sequence: 2, Window: window(anchor.Add(30*time.Minute), anchor.Add(60*time.Minute))},
	}

	decision, err := Evaluate(steps, 2, anchor.Add(35*time.Minute))
	require.NoError(t, err)
	require.Equal(t, Accessible, decision)
}

func TestEvaluateSequencePrecedesTiming(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	steps := []StepState{
		{Sequence: 1, Window: window(anchor, anchor.Add(30*time.Minute)), Completed: true},
		{Sequence: 2, Window: window(anchor.Add(30*time.Minute), anchor.Add(60*time.Minute))},
		{Sequence: 3, Window: window(anchor.Add(60*time.Minute), anchor.Add(90*time.Minute))},
	}

	// Step 3 is evaluated while step 2 is incomplete. Whatever the state of
	// step 3's own window, sequencing wins.
	for _, now := range []time.Time{
		anchor.Add(35 * time.Minute),  // before step 3 opens
		anchor.Add(70 * time.Minute),  // inside step 3's window
		anchor.Add(120 * time.Minute), // after step 3 expired
	} {
		decision, err := Evaluate(steps, 3, now)
		require.NoError(t, err)
		require.Equal(t, PreviousNotCompleted, decision)
	}
}

func TestEvaluateExpiredStepWithIncompletePredecessor(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	steps := []StepState{
		{Sequence: 1, Window: window(anchor, anchor.Add(30*time.Minute))},
		{Sequence: 2, Window: window(anchor.Add(30*time.Minute), anchor.Add(60*time.Minute))},
	}

	decision, err := Evaluate(steps, 2, anchor.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, PreviousNotCompleted, decision, "sequence check must precede the expiry check")
}

func TestEvaluateNotStartedAndExpired(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	steps := []StepState{
		{Sequence: 1, Window: window(anchor.Add(30*time.Minute), anchor.Add(60*time.Minute))},
	}

	decision, err := Evaluate(steps, 1, anchor)
	require.NoError(t, err)
	require.Equal(t, NotStarted, decision)

	decision, err = Evaluate(steps, 1, anchor.Add(90*time.Minute))
	require.NoError(t, err)
	require.Equal(t, Expired, decision)
}

func TestEvaluateAlreadyCompletedWinsOverWindow(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	steps := []StepState{
		{Sequence: 1, Window: window(anchor, anchor.Add(time.Hour)), Completed: true},
	}

	decision, err := Evaluate(steps, 1, anchor.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, AlreadyCompleted, decision)
}

func TestEvaluateRedoBypassesCompletion(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	steps := []StepState{
		{Sequence: 1, Window: window(anchor, anchor.Add(time.Hour)), Completed: true, AllowRedo: true},
	}

	decision, err := Evaluate(steps, 1, anchor.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, Accessible, decision)
}

func TestEvaluateSkippedStepsDoNotBlock(t *testing.T) {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	steps := []StepState{
		{Sequence: 1, Skippable: true, Skipped: true},
		{Sequence: 2},
	}

	decision, err := Evaluate(steps, 2, now)
	require.NoError(t, err)
	require.Equal(t, Accessible, decision)

	// A skippable step that was not actually skipped still blocks.
	steps[0].Skipped = false
	decision, err = Evaluate(steps, 2, now)
	require.NoError(t, err)
	require.Equal(t, PreviousNotCompleted, decision)
}

func TestEvaluateUnboundedWindowIsTimeAccessible(t *testing.T) {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	steps := []StepState{{Sequence: 1}}

	decision, err := Evaluate(steps, 1, now)
	require.NoError(t, err)
	require.Equal(t, Accessible, decision)
}

func TestEvaluateUnknownSequence(t *testing.T) {
	_, err := Evaluate([]StepState{{Sequence: 1}}, 9, time.Now())
	require.ErrorIs(t, err, ErrUnknownStep)
}
