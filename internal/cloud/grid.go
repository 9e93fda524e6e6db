package cloud

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Position is one carriage stop along the linear axis together with the raw
// readings of the full rotation taken there.
type Position struct {
	// Axis is the linear-axis coordinate of this stop in metres.
	Axis float64
	// Readings are the distance readings (millimetres) as received from the
	// sensor, in acquisition order.
	Readings []string
}

// RawGrid is the acquisition output: len(Positions) stops, each expected to
// carry exactly Steps readings.
type RawGrid struct {
	Steps     int
	Positions []Position
}

// Dimensions returns the (positions, steps) shape of the grid.
func (g *RawGrid) Dimensions() (int, int) {
	if g == nil {
		return 0, 0
	}
	return len(g.Positions), g.Steps
}

// Validate checks the shape of the grid and that every reading parses.
func (g *RawGrid) Validate() error {
	_, err := g.distances()
	return err
}

// distances validates the grid and returns the parsed readings, flattened in
// position-major order.
func (g *RawGrid) distances() ([]float64, error) {
	if g == nil {
		return nil, &MalformedGridError{Position: -1, Step: -1, Reason: "nil grid"}
	}
	if g.Steps < 1 {
		return nil, &MalformedGridError{Position: -1, Step: -1, Reason: fmt.Sprintf("steps per position must be >= 1, got %d", g.Steps)}
	}
	if len(g.Positions) == 0 {
		return nil, &MalformedGridError{Position: -1, Step: -1, Reason: "grid has no positions"}
	}

	out := make([]float64, 0, len(g.Positions)*g.Steps)
	for p, pos := range g.Positions {
		if len(pos.Readings) != g.Steps {
			return nil, &MalformedGridError{
				Position: p,
				Step:     -1,
				Reason:   fmt.Sprintf("have %d readings, want %d", len(pos.Readings), g.Steps),
			}
		}
		if math.IsNaN(pos.Axis) || math.IsInf(pos.Axis, 0) {
			return nil, &MalformedGridError{Position: p, Step: -1, Reason: "axis coordinate is not finite"}
		}
		for s, raw := range pos.Readings {
			d, err := ParseReading(raw)
			if err != nil {
				return nil, &MalformedGridError{Position: p, Step: s, Err: err}
			}
			out = append(out, d)
		}
	}
	return out, nil
}

// ParseReading parses one raw distance reading in millimetres. Empty,
// non-numeric, non-finite and negative readings are rejected rather than
// coerced to zero.
func ParseReading(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty reading")
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("reading %q is not a number", raw)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("reading %q is not finite", raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("reading %q is negative", raw)
	}
	return d, nil
}

// Index returns the flat point index of (position, step) for a grid with the
// given number of steps per position.
func Index(position, step, steps int) int {
	return position*steps + step
}
