package phenology

import (
	"io"
	"math"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const plotDateLayout = "2006-01-02"

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are
// left as gaps in the line.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Top: "30px"}),
	)

	xAxis := make([]string, len(t))
	for i, ts := range t {
		xAxis[i] = ts.Format(plotDateLayout)
	}
	line = line.SetXAxis(xAxis)

	for i, series := range seriesName {
		lineData := make([]opts.LineData, len(y[i]))
		for j, v := range y[i] {
			if math.IsNaN(v) {
				continue
			}
			lineData[j] = opts.LineData{Value: v}
		}
		line = line.AddSeries(series, lineData)
	}

	return line
}

// LineEvents generates an echart line chart of the smoothed series with the onset, peak and decay
// of every event marked as isolated points.
func LineEvents(a *Analysis) *charts.Line {
	n := a.Smoothed.Len()
	onset := nanSlice(n)
	peak := nanSlice(n)
	decay := nanSlice(n)

	index := make(map[int64]int, n)
	for i, ts := range a.Smoothed.T {
		index[ts.Unix()] = i
	}
	mark := func(dst []float64, ts time.Time) {
		if i, ok := index[ts.Unix()]; ok {
			dst[i] = a.Smoothed.Y[i]
		}
	}
	for _, ev := range a.Events {
		mark(onset, ev.OnsetDate)
		mark(peak, ev.PeakDate)
		mark(decay, ev.DecayDate)
	}

	return LineTSeries(
		"Bloom Events",
		[]string{"Smoothed", "Onset", "Peak", "Decay"},
		a.Smoothed.T,
		[][]float64{a.Smoothed.Y, onset, peak, decay},
	)
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Plot uses the Apache Echarts library to generate an html file showing the prepared series, the
// smoothed fit against its baseline and the extracted bloom events.
func (a *Analysis) Plot(path string) error {
	baseline := make([]float64, a.Smoothed.Len())
	for i := range baseline {
		baseline[i] = a.Detection.Baseline
	}

	page := components.NewPage()
	page.AddCharts(
		LineTSeries(
			"Vegetation Index",
			[]string{"Prepared", "Smoothed", "Baseline"},
			a.Smoothed.T,
			[][]float64{a.Series.Values(), a.Smoothed.Y, baseline},
		),
		LineEvents(a),
	)

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return page.Render(io.MultiWriter(file))
}
