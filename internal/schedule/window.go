// Package schedule turns relative step timing configuration into absolute time
// windows anchored to a class session start. All functions are pure and are
// re-evaluated on every access check so that session reschedules propagate
// immediately.
package schedule

import "time"

// DefaultDuration is substituted when a step has no usable duration configured.
const DefaultDuration = 60 * time.Minute

// Window is the concrete [Start, End] range during which a step is
// time-accessible. Either bound may be nil when the inputs required to compute
// it are missing; a nil bound never restricts access.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Timing is the authoritative timing configuration of one step. ExplicitStart
// and ExplicitEnd, when present, win over the offset/duration form.
type Timing struct {
	OffsetMinutes   *int
	DurationMinutes *int
	ExplicitStart   *time.Time
	ExplicitEnd     *time.Time
}

// ComputeStart shifts the session anchor by the step offset. A nil anchor means
// the session has not been scheduled yet and yields nil rather than an error.
// A nil offset counts as zero.
func ComputeStart(anchorStart *time.Time, offsetMinutes *int) *time.Time {
	if anchorStart == nil {
		return nil
	}

	offset := 0
	if offsetMinutes != nil {
		offset = *offsetMinutes
	}

	start := anchorStart.Add(time.Duration(offset) * time.Minute)
	return &start
}

// ComputeEnd extends a start instant by the step duration. Missing or
// non-positive durations fall back to DefaultDuration.
func ComputeEnd(start *time.Time, durationMinutes *int) *time.Time {
	if start == nil {
		return nil
	}

	duration := DefaultDuration
	if durationMinutes != nil && *durationMinutes > 0 {
		duration = time.Duration(*durationMinutes) * time.Minute
	}

	end := start.Add(duration)
	return &end
}

// ComputeWindow composes ComputeStart and ComputeEnd for one step. A nil timing
// yields an unbounded window. Explicit instants override the relative form.
func ComputeWindow(anchorStart *time.Time, timing *Timing) Window {
	if timing == nil {
		return Window{}
	}

	if timing.ExplicitStart != nil || timing.ExplicitEnd != nil {
		return Window{Start: timing.ExplicitStart, End: timing.ExplicitEnd}
	}

	start := ComputeStart(anchorStart, timing.OffsetMinutes)
	return Window{Start: start, End: ComputeEnd(start, timing.DurationMinutes)}
}
