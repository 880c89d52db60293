package kinematics

import "fmt"

// IntegrityError reports derived data that violates a hard invariant,
// such as an angular velocity sample outside [0, 181] or a trajectory too
// short to produce turning angles. It is fatal for the trajectory.
type IntegrityError struct {
	Metric string
	Index  int
	Value  float64
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: sample %d = %v: %s", e.Metric, e.Index, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Metric, e.Reason)
}
