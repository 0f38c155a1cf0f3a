package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/psmcsim/internal/analysis"
	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Downsample picks at most n evenly spaced values, always keeping the last.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = values[i*(len(values)-1)/(n-1)]
	}
	return out
}

// PlotTemperatures draws PIN and DEA (degC) against sample index.
func PlotTemperatures(tr *dynamo.Trajectory, width, height int) string {
	if tr == nil || tr.Len() == 0 {
		return ""
	}
	pin := Downsample(tr.Channel(dynamo.NodePIN, true), width)
	dea := Downsample(tr.Channel(dynamo.NodeDEA, true), width)

	t0, _ := tr.At(0)
	t1, _ := tr.Last()
	return asciigraph.PlotMany([][]float64{pin, dea},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption(fmt.Sprintf("1PIN1AT (blue), 1PDEAAT (red) from t=%.0f to %.0f s", t0, t1)),
	)
}

// PlotSeries draws one channel with a caption.
func PlotSeries(values []float64, width, height int, caption string) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(Downsample(values, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotSettling draws DEA settling temperature across a pitch sweep.
func PlotSettling(points []analysis.SettlingPoint, width, height int) string {
	if len(points) == 0 {
		return ""
	}
	dea := make([]float64, len(points))
	for i, p := range points {
		dea[i] = p.DEA
	}
	caption := fmt.Sprintf("1PDEAAT settling temperature, pitch %.0f to %.0f deg", points[0].Pitch, points[len(points)-1].Pitch)
	return PlotSeries(dea, width, height, caption)
}
