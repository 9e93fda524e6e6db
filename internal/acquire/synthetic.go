package acquire

import (
	"math"
	"strconv"

	"github.com/banshee-data/scanrig/internal/cloud"
)

// Shape returns the distance in millimetres the sensor would read at
// position p, step s.
type Shape func(p, s int) float64

// Corridor is a rectangular tunnel centred on the rotation axis, width wide
// along y and height tall along z, both in millimetres.
func Corridor(widthMM, heightMM float64, steps int, zeroAngleOffsetDeg float64) Shape {
	halfW, halfH := widthMM/2, heightMM/2
	return func(_, s int) float64 {
		rad := cloud.StepAngleDeg(s, steps, zeroAngleOffsetDeg) * math.Pi / 180
		sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
		d := math.Inf(1)
		if sin > 1e-9 {
			d = halfW / sin
		}
		if cos > 1e-9 {
			d = math.Min(d, halfH/cos)
		}
		return d
	}
}

// SyntheticReadings renders shape over layout as the digit strings the rig
// firmware sends, in acquisition order.
func SyntheticReadings(layout Layout, shape Shape) []string {
	out := make([]string, 0, layout.Readings())
	for p := range layout.Positions {
		for s := range layout.Steps {
			d := math.Max(0, math.Round(shape(p, s)))
			out = append(out, strconv.FormatInt(int64(d), 10))
		}
	}
	return out
}
