package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/scanrig/internal/cloud"
)

// HTMLOptions controls the interactive page.
type HTMLOptions struct {
	Title string
	// AssetsHost overrides where echarts.min.js is loaded from, for
	// machines without internet access.
	AssetsHost string
	// MaxPoints caps the scatter series; larger clouds are strided.
	MaxPoints int
	// Wireframe adds a Line3D chart of the edge chains.
	Wireframe bool
}

const defaultMaxPoints = 20000

func chart3DValue(p cloud.Point) opts.Chart3DData {
	return opts.Chart3DData{Value: []interface{}{p.X, p.Y, p.Z}}
}

func initOpts(o HTMLOptions, title string) charts.GlobalOpts {
	in := opts.Initialization{PageTitle: title, Theme: "dark", Width: "1000px", Height: "800px"}
	if o.AssetsHost != "" {
		in.AssetsHost = o.AssetsHost
	}
	return charts.WithInitializationOpts(in)
}

func axesOpts() []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X (m)"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y (m)"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z (m)"}),
	}
}

// HTML renders points, and optionally their edges, as a standalone page.
func HTML(w io.Writer, points []cloud.Point, edges []cloud.Edge, o HTMLOptions) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to render")
	}
	title := o.Title
	if title == "" {
		title = "Scan"
	}
	maxPoints := o.MaxPoints
	if maxPoints <= 0 {
		maxPoints = defaultMaxPoints
	}

	stride := 1
	if len(points) > maxPoints {
		stride = int(math.Ceil(float64(len(points)) / float64(maxPoints)))
	}
	data := make([]opts.Chart3DData, 0, len(points)/stride+1)
	for i := 0; i < len(points); i += stride {
		data = append(data, chart3DValue(points[i]))
	}

	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(append(axesOpts(),
		initOpts(o, title),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d stride=%d", len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)...)
	scatter.AddSeries("points", data)

	page := components.NewPage()
	page.PageTitle = title
	if o.AssetsHost != "" {
		page.AssetsHost = o.AssetsHost
	}
	page.AddCharts(scatter)

	if o.Wireframe && len(edges) > 0 {
		chains := Chains(len(points), edges)
		line := charts.NewLine3D()
		line.SetGlobalOptions(append(axesOpts(),
			initOpts(o, title),
			charts.WithTitleOpts(opts.Title{Title: title + " wireframe", Subtitle: fmt.Sprintf("edges=%d chains=%d", len(edges), len(chains))}),
		)...)
		for i, chain := range chains {
			series := make([]opts.Chart3DData, len(chain))
			for j, idx := range chain {
				series[j] = chart3DValue(points[idx])
			}
			line.AddSeries(fmt.Sprintf("chain %d", i), series,
				charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"}))
		}
		page.AddCharts(line)
	}

	return page.Render(w)
}
