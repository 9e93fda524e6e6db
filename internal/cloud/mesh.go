package cloud

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// Components returns the number of connected components of the graph formed
// by n points and edges. Points touched by no edge count as their own
// component.
func Components(n int, edges []Edge) (int, error) {
	g := simple.NewUndirectedGraph()
	for i := range n {
		g.AddNode(simple.Node(i))
	}
	for i, e := range edges {
		if e.A < 0 || e.A >= n || e.B < 0 || e.B >= n {
			return 0, fmt.Errorf("edge %d (%d,%d) out of range for %d points", i, e.A, e.B, n)
		}
		if e.A == e.B {
			return 0, fmt.Errorf("edge %d is a self loop on %d", i, e.A)
		}
		g.SetEdge(simple.Edge{F: simple.Node(e.A), T: simple.Node(e.B)})
	}
	return len(topo.ConnectedComponents(g)), nil
}

// Bounds returns the axis-aligned bounding box of points. Both vectors are
// zero for an empty slice.
func Bounds(points []Point) (lo, hi r3.Vec) {
	if len(points) == 0 {
		return
	}
	lo, hi = points[0].Vec(), points[0].Vec()
	for _, p := range points[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return
}

// RadialStat summarises the readings of one position.
type RadialStat struct {
	Position int
	Axis     float64
	MeanMM   float64
	StdDevMM float64
	MinMM    float64
	MaxMM    float64
	Zeros    int
}

// RadialStats validates grid and returns per-position distance statistics.
func RadialStats(grid *RawGrid) ([]RadialStat, error) {
	dist, err := grid.distances()
	if err != nil {
		return nil, err
	}
	out := make([]RadialStat, len(grid.Positions))
	for p, pos := range grid.Positions {
		row := dist[Index(p, 0, grid.Steps):Index(p+1, 0, grid.Steps)]
		mean, std := stat.MeanStdDev(row, nil)
		rs := RadialStat{Position: p, Axis: pos.Axis, MeanMM: mean, StdDevMM: std, MinMM: math.Inf(1), MaxMM: math.Inf(-1)}
		if len(row) == 1 {
			rs.StdDevMM = 0
		}
		for _, d := range row {
			rs.MinMM = math.Min(rs.MinMM, d)
			rs.MaxMM = math.Max(rs.MaxMM, d)
			if d == 0 {
				rs.Zeros++
			}
		}
		out[p] = rs
	}
	return out, nil
}
