package plots

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// BinWidth is the histogram bin width in degree/s.
const BinWidth = 10

// HistogramBins counts samples into [k*width, (k+1)*width) bins covering
// [0, max]. Samples outside the range are clamped into the end bins.
func HistogramBins(samples []float64, width, max float64) []int {
	n := int(math.Ceil(max/width)) + 1
	bins := make([]int, n)
	for _, s := range samples {
		k := int(math.Floor(s / width))
		if k < 0 {
			k = 0
		}
		if k >= n {
			k = n - 1
		}
		bins[k]++
	}
	return bins
}

// AngularVelocityHistogram renders the angular-velocity distribution of
// one well. Bins at or below threshold form the "slow" series.
func AngularVelocityHistogram(w io.Writer, title string, samples []float64, threshold, max float64) error {
	bins := HistogramBins(samples, BinWidth, max)

	labels := make([]string, len(bins))
	slow := make([]opts.BarData, len(bins))
	fast := make([]opts.BarData, len(bins))
	for i, c := range bins {
		lo := float64(i) * BinWidth
		labels[i] = fmt.Sprintf("%g-%g", lo, lo+BinWidth)
		if lo+BinWidth <= threshold {
			slow[i] = opts.BarData{Value: c}
			fast[i] = opts.BarData{Value: 0}
		} else {
			slow[i] = opts.BarData{Value: 0}
			fast[i] = opts.BarData{Value: c}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("samples=%d threshold=%g degree/s", len(samples), threshold)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "degree/s", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "samples"}),
	)
	bar.SetXAxis(labels).
		AddSeries("slow", slow, charts.WithBarChartOpts(opts.BarChart{Stack: "av"})).
		AddSeries("fast", fast, charts.WithBarChartOpts(opts.BarChart{Stack: "av"}))

	return bar.Render(w)
}
