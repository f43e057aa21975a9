package field

import "fmt"

// LogicError reports a caller contract violation: wrong role for an
// operation, mask values outside [0,1], a violated mask-sum constraint,
// negative scale/amount arguments, or field-length mismatches. These
// indicate a usage bug upstream and are fatal to the calling operation,
// never silently clamped, so conservation bookkeeping is never built on a
// corrupted field.
type LogicError struct {
	Op      string
	Message string
}

// Error implements the error interface.
func (e *LogicError) Error() string {
	return fmt.Sprintf("logic error in %s: %s", e.Op, e.Message)
}

// ConservationError reports a failed mixer post-condition or an exceeded
// correction-scale cap. Fatal to the step; distinct from LogicError because
// the caller may retry with adjusted tolerances rather than treat it as a
// usage bug.
type ConservationError struct {
	Message string

	// Total and Target describe the failed balance when known.
	Total  float64
	Target float64

	// Scale is the rejected correction scale for cap violations, 0
	// otherwise.
	Scale float64
}

// Error implements the error interface.
func (e *ConservationError) Error() string {
	if e.Scale != 0 {
		return fmt.Sprintf("conservation violation: %s (scale=%g cap=%g)", e.Message, e.Scale, MaxScaleFactor)
	}
	return fmt.Sprintf("conservation violation: %s (total=%g target=%g)", e.Message, e.Total, e.Target)
}
