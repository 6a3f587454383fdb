package render

import (
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/arena.tracker/internal/arena/l6summary"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// barValue maps NaN to the echarts missing-value marker.
func barValue(v float64) opts.BarData {
	if math.IsNaN(v) {
		return opts.BarData{Value: "-"}
	}
	return opts.BarData{Value: v}
}

// BinChartHTML writes an HTML page with two bar charts: distance per bin,
// and occupancy per bin for every region.
func BinChartHTML(out io.Writer, title string, rows []l6summary.Row, regions []string) error {
	labels := make([]string, len(rows))
	dist := make([]opts.BarData, len(rows))
	cross := make([]opts.BarData, len(rows))
	for i, r := range rows {
		labels[i] = r.Bin.Label
		dist[i] = barValue(r.DistancePx)
		cross[i] = opts.BarData{Value: r.CrossRegion}
	}

	distBar := charts.NewBar()
	distBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Distance per bin", Subtitle: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "px"}),
	)
	distBar.SetXAxis(labels).
		AddSeries("distance", dist,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		).
		AddSeries("crossings", cross)

	page := components.NewPage()
	page.AddCharts(distBar)

	if len(regions) > 0 {
		occBar := charts.NewBar()
		occBar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
			charts.WithTitleOpts(opts.Title{Title: "Occupancy per bin"}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: "fraction", Min: 0, Max: 1}),
		)
		occBar.SetXAxis(labels)
		for _, name := range regions {
			data := make([]opts.BarData, len(rows))
			for i, r := range rows {
				v, ok := r.Occupancy[name]
				if !ok {
					v = math.NaN()
				}
				data[i] = barValue(v)
			}
			occBar.AddSeries(name, data)
		}
		page.AddCharts(occBar)
	}

	if err := page.Render(out); err != nil {
		return fmt.Errorf("render bin chart: %w", err)
	}
	return nil
}
