// Package acquire assembles scanner readings into a cloud.RawGrid.
//
// A Collector owns one acquisition: it subscribes to a serial mux, runs the
// mux's monitor loop for as long as it needs readings, and releases both when
// the grid is complete or the acquisition fails. Every reading is handed to a
// Sink as it arrives so a partial scan survives an interrupted run.
package acquire

import "fmt"

// Layout is the shape of a scan and the carriage coordinates of each stop.
type Layout struct {
	Positions int
	Steps     int
	// AxisStart is the carriage coordinate of position 0 in metres.
	AxisStart float64
	// AxisStep is the carriage travel between consecutive positions in metres.
	AxisStep float64
}

// ReferenceLayout is the 20 x 512 layout of the reference rig, stepping the
// carriage 0.2 m backwards between rotations.
var ReferenceLayout = Layout{Positions: 20, Steps: 512, AxisStart: 0, AxisStep: -0.2}

// Axis returns the carriage coordinate of position p.
func (l Layout) Axis(p int) float64 {
	return l.AxisStart + l.AxisStep*float64(p)
}

// Readings returns the number of readings in a complete scan.
func (l Layout) Readings() int {
	return l.Positions * l.Steps
}

func (l Layout) Validate() error {
	if l.Positions < 1 {
		return fmt.Errorf("positions must be >= 1, got %d", l.Positions)
	}
	if l.Steps < 1 {
		return fmt.Errorf("steps must be >= 1, got %d", l.Steps)
	}
	return nil
}
