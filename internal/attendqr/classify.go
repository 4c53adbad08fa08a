package attendqr

import "time"

// Status classifies one accepted scan.
type Status string

const (
	StatusNormal     Status = "NORMAL"
	StatusLate       Status = "LATE"
	StatusMakeup     Status = "MAKEUP"
	StatusCrossClass Status = "CROSS_CLASS"
)

// Policy carries the session's attendance thresholds, measured from the
// session anchor start. Values are external policy input, never hard-coded.
type Policy struct {
	LateAfter   time.Duration
	MakeupAfter time.Duration
}

// Classify derives the status of a scan that already passed freshness and
// membership checks. A student outside the session's bound class set is
// CROSS_CLASS when the session allows it; otherwise the scan time against the
// anchor decides between normal, late and makeup.
func Classify(scanTime, anchorStart time.Time, studentClass string, sessionClasses []string, multiClass bool, policy Policy) Status {
	member := false
	for _, class := range sessionClasses {
		if class == studentClass {
			member = true
			break
		}
	}

	if !member && multiClass {
		return StatusCrossClass
	}

	elapsed := scanTime.Sub(anchorStart)
	switch {
	case policy.MakeupAfter > 0 && elapsed > policy.MakeupAfter:
		return StatusMakeup
	case policy.LateAfter > 0 && elapsed > policy.LateAfter:
		return StatusLate
	default:
		return StatusNormal
	}
}
