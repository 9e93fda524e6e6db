package cloud

import "fmt"

// MalformedGridError reports a RawGrid that violates its shape or numeric
// invariants. Position and Step are -1 when the fault is not tied to a cell.
type MalformedGridError struct {
	Position int
	Step     int
	Reason   string
	Err      error
}

func (e *MalformedGridError) Error() string {
	msg := "malformed grid"
	switch {
	case e.Position >= 0 && e.Step >= 0:
		msg = fmt.Sprintf("%s at position %d step %d", msg, e.Position, e.Step)
	case e.Position >= 0:
		msg = fmt.Sprintf("%s at position %d", msg, e.Position)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedGridError) Unwrap() error { return e.Err }

// InvalidDimensionsError is returned when edges are requested for a grid with
// fewer than one position or one step.
type InvalidDimensionsError struct {
	Positions int
	Steps     int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid grid dimensions %dx%d: positions and steps must be >= 1", e.Positions, e.Steps)
}
