package cloud

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultZeroAngleOffsetDeg is the angle of step 0 on the reference rig. The
// sensor starts each rotation facing down.
const DefaultZeroAngleOffsetDeg = 270.0

// Point is a Cartesian point in metres. X runs along the carriage axis; Y and
// Z span the plane of rotation.
type Point struct {
	X, Y, Z float64
}

// Vec returns the point as a gonum vector.
func (p Point) Vec() r3.Vec { return r3.Vec(p) }

// StepAngleDeg returns the rotation angle in degrees of the given step for a
// rotation sampled in steps increments, starting at offsetDeg.
func StepAngleDeg(step, steps int, offsetDeg float64) float64 {
	return (360.0/float64(steps))*float64(step) + offsetDeg
}

// PolarToCartesian projects a distance in millimetres at angleDeg onto the
// rotation plane, returning (y, z) in metres.
// Convention: angle 0 points along +Z, 90 along +Y.
func PolarToCartesian(distanceMM, angleDeg float64) (y, z float64) {
	angleRad := angleDeg * math.Pi / 180.0
	y = distanceMM * math.Sin(angleRad) / 1000.0
	z = distanceMM * math.Cos(angleRad) / 1000.0
	return
}

// Converter maps a RawGrid to a point sequence.
type Converter struct {
	// ZeroAngleOffsetDeg is the calibrated angle of step 0. It is a property
	// of the rig's mounting and is never derived from the data.
	ZeroAngleOffsetDeg float64
}

// NewConverter returns a Converter for a rig whose step 0 sits at
// zeroAngleOffsetDeg.
func NewConverter(zeroAngleOffsetDeg float64) *Converter {
	return &Converter{ZeroAngleOffsetDeg: zeroAngleOffsetDeg}
}

// Convert validates grid and returns len(grid.Positions)*grid.Steps points in
// position-major, step-minor order. The X of every point is the axis value of
// its position. A *MalformedGridError is returned if the grid is ragged or any
// reading fails to parse; no points are returned in that case.
func (c *Converter) Convert(grid *RawGrid) ([]Point, error) {
	dist, err := grid.distances()
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(dist))
	for p, pos := range grid.Positions {
		for s := range grid.Steps {
			y, z := PolarToCartesian(dist[Index(p, s, grid.Steps)], StepAngleDeg(s, grid.Steps, c.ZeroAngleOffsetDeg))
			points = append(points, Point{X: pos.Axis, Y: y, Z: z})
		}
	}
	return points, nil
}
