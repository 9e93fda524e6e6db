package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/scanrig/internal/cloud"
)

// Projection selects the two cloud axes drawn on the page.
type Projection int

const (
	ProjectYZ Projection = iota // cross-section along the carriage
	ProjectXY                   // side view
	ProjectXZ                   // top view
)

func (p Projection) String() string {
	switch p {
	case ProjectXY:
		return "xy"
	case ProjectXZ:
		return "xz"
	default:
		return "yz"
	}
}

// ParseProjection accepts "xy", "xz" or "yz"; empty means "yz".
func ParseProjection(s string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yz":
		return ProjectYZ, nil
	case "xy":
		return ProjectXY, nil
	case "xz":
		return ProjectXZ, nil
	}
	return 0, fmt.Errorf("unknown projection %q (want xy, xz or yz)", s)
}

func (p Projection) project(pt cloud.Point) (float64, float64) {
	switch p {
	case ProjectXY:
		return pt.X, pt.Y
	case ProjectXZ:
		return pt.X, pt.Z
	default:
		return pt.Y, pt.Z
	}
}

func (p Projection) labels() (string, string) {
	s := p.String()
	return strings.ToUpper(s[:1]) + " (m)", strings.ToUpper(s[1:]) + " (m)"
}

// PNGOptions controls the static projection.
type PNGOptions struct {
	Title         string
	Width, Height vg.Length
	// PointRadius of zero hides the point glyphs.
	PointRadius vg.Length
}

// edgePlotter draws each edge as a straight segment between its projected
// endpoints.
type edgePlotter struct {
	segments [][4]float64
	draw.LineStyle
}

func newEdgePlotter(points []cloud.Point, edges []cloud.Edge, proj Projection) (*edgePlotter, error) {
	ep := &edgePlotter{
		segments:  make([][4]float64, 0, len(edges)),
		LineStyle: draw.LineStyle{Color: color.RGBA{R: 49, G: 104, B: 142, A: 255}, Width: vg.Points(0.4)},
	}
	for _, e := range edges {
		if e.A < 0 || e.A >= len(points) || e.B < 0 || e.B >= len(points) {
			return nil, fmt.Errorf("edge (%d, %d) outside %d points", e.A, e.B, len(points))
		}
		x0, y0 := proj.project(points[e.A])
		x1, y1 := proj.project(points[e.B])
		ep.segments = append(ep.segments, [4]float64{x0, y0, x1, y1})
	}
	return ep, nil
}

func (ep *edgePlotter) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	for _, s := range ep.segments {
		c.StrokeLine2(ep.LineStyle, trX(s[0]), trY(s[1]), trX(s[2]), trY(s[3]))
	}
}

func (ep *edgePlotter) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, s := range ep.segments {
		xmin = math.Min(xmin, math.Min(s[0], s[2]))
		xmax = math.Max(xmax, math.Max(s[0], s[2]))
		ymin = math.Min(ymin, math.Min(s[1], s[3]))
		ymax = math.Max(ymax, math.Max(s[1], s[3]))
	}
	return xmin, xmax, ymin, ymax
}

func newPlot(points []cloud.Point, edges []cloud.Edge, proj Projection, o PNGOptions) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no points to render")
	}

	p := plot.New()
	p.Title.Text = o.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("Scan (%s projection)", proj)
	}
	p.X.Label.Text, p.Y.Label.Text = proj.labels()
	p.Add(plotter.NewGrid())

	if len(edges) > 0 {
		ep, err := newEdgePlotter(points, edges, proj)
		if err != nil {
			return nil, err
		}
		p.Add(ep)
	}

	if o.PointRadius > 0 {
		xys := make(plotter.XYs, len(points))
		for i, pt := range points {
			xys[i].X, xys[i].Y = proj.project(pt)
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Radius = o.PointRadius
		sc.GlyphStyle.Color = color.RGBA{R: 253, G: 231, B: 37, A: 255}
		p.Add(sc)
	}
	return p, nil
}

func (o PNGOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 10 * vg.Inch
	}
	if h <= 0 {
		h = 8 * vg.Inch
	}
	return w, h
}

// PNG saves the projection to path; the format follows the extension.
func PNG(path string, points []cloud.Point, edges []cloud.Edge, proj Projection, o PNGOptions) error {
	p, err := newPlot(points, edges, proj, o)
	if err != nil {
		return err
	}
	w, h := o.size()
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// WritePNG encodes the projection as PNG to w.
func WritePNG(w io.Writer, points []cloud.Point, edges []cloud.Edge, proj Projection, o PNGOptions) error {
	p, err := newPlot(points, edges, proj, o)
	if err != nil {
		return err
	}
	width, height := o.size()
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
