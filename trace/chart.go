package trace

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// NewChart plots pc, stack depth and stalls against the cycle count.
func NewChart(title string, steps []Step) *charts.Line {
	xs := make([]uint64, 0, len(steps))
	pcs := make([]opts.LineData, 0, len(steps))
	depths := make([]opts.LineData, 0, len(steps))
	stalls := make([]opts.LineData, 0, len(steps))
	for _, s := range steps {
		xs = append(xs, s.Cycle)
		pcs = append(pcs, opts.LineData{Value: s.PC})
		depths = append(depths, opts.LineData{Value: s.Depth})
		stall := 0
		if s.Stall {
			stall = 1
		}
		stalls = append(stalls, opts.LineData{Value: stall})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "pc, stack depth and stalls per cycle",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "cycle"}),
	)
	line.SetXAxis(xs).
		AddSeries("pc", pcs).
		AddSeries("stack depth", depths).
		AddSeries("stall", stalls)
	return line
}

// RenderChart writes a standalone HTML page holding the chart.
func RenderChart(w io.Writer, title string, steps []Step) error {
	page := components.NewPage()
	page.AddCharts(NewChart(title, steps))
	return page.Render(w)
}
