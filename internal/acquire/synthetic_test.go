package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanrig/internal/cloud"
)

func TestCorridor(t *testing.T) {
	t.Parallel()
	shape := Corridor(2000, 1000, 4, cloud.DefaultZeroAngleOffsetDeg)

	// 270, 360, 90 and 180 degrees: walls at y=-1m, z=+0.5m, y=+1m, z=-0.5m.
	assert.InDelta(t, 1000, shape(0, 0), 1e-6)
	assert.InDelta(t, 500, shape(0, 1), 1e-6)
	assert.InDelta(t, 1000, shape(0, 2), 1e-6)
	assert.InDelta(t, 500, shape(0, 3), 1e-6)
}

func TestSyntheticReadings(t *testing.T) {
	t.Parallel()
	layout := Layout{Positions: 3, Steps: 8, AxisStep: -0.2}
	readings := SyntheticReadings(layout, Corridor(2000, 1000, layout.Steps, cloud.DefaultZeroAngleOffsetDeg))
	require.Len(t, readings, layout.Readings())
	assert.Equal(t, "1000", readings[0])
	assert.Equal(t, "500", readings[2])

	grid := &cloud.RawGrid{Steps: layout.Steps}
	for p := range layout.Positions {
		grid.Positions = append(grid.Positions, cloud.Position{
			Axis:     layout.Axis(p),
			Readings: readings[p*layout.Steps : (p+1)*layout.Steps],
		})
	}
	points, err := cloud.NewConverter(cloud.DefaultZeroAngleOffsetDeg).Convert(grid)
	require.NoError(t, err)
	for _, pt := range points {
		onWall := assert.InDelta(t, 1, max(abs(pt.Y)/1.0, abs(pt.Z)/0.5), 0.002)
		if !onWall {
			break
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
