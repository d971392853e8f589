// Package report renders debugging artefacts for a stabilisation run.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"vidstab/internal/trajectory"
)

var channelNames = [3]string{"x (px)", "y (px)", "angle (rad)"}

// RenderTrajectory writes an HTML line chart comparing the raw and smoothed
// camera trajectories, one series pair per channel.
func RenderTrajectory(w io.Writer, raw, smoothed trajectory.Path) error {
	n := raw.Len()
	if n == 0 {
		return fmt.Errorf("report: empty trajectory")
	}
	if smoothed.Len() != n {
		return fmt.Errorf("report: trajectory lengths differ: %d vs %d", n, smoothed.Len())
	}

	frames := make([]int, n)
	for i := range frames {
		frames[i] = i + 1
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Camera trajectory", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Camera trajectory", Subtitle: fmt.Sprintf("%d frame transitions", n)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	line.SetXAxis(frames)
	for c := 0; c < 3; c++ {
		line.AddSeries(channelNames[c]+" raw", lineData(raw.Channel(c)))
		line.AddSeries(channelNames[c]+" smoothed", lineData(smoothed.Channel(c)))
	}

	return line.Render(w)
}

// WriteTrajectoryChart renders the trajectory chart to an HTML file.
func WriteTrajectoryChart(path string, raw, smoothed trajectory.Path) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderTrajectory(f, raw, smoothed); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	return data
}
