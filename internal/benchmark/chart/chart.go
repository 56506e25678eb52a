// Package chart draws the cold-start comparison chart: for every non-baseline
// configuration, the difference from the baseline per memory size.
package chart

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/streamfold/coldstart-bench/internal/benchmark/stats"
)

var ErrNoChartData = errors.New("no comparable data to chart")

type DifferenceChartInput struct {
	// Records must already carry Difference, see stats.Compare.
	Records  []stats.AggregatedRecord
	Baseline string
	Title    string
	// FilePath extension selects the format: .png, .svg, .pdf...
	FilePath string
}

// MemoryLabel renders a memory size the way the tick labels show it.
func MemoryLabel(memory int) string {
	if memory < 1024 {
		return strconv.Itoa(memory) + " MB"
	}
	return strconv.FormatFloat(float64(memory)/1024, 'f', -1, 64) + " GB"
}

// SaveDifferenceChart plots one line per configuration other than the
// baseline. Points with an undefined difference are left out.
func SaveDifferenceChart(input DifferenceChartInput) error {
	p := plot.New()
	p.Title.Text = lo.Ternary(input.Title != "", input.Title, "Coldstart Comparison")
	p.X.Label.Text = "Memory (MB)"
	p.Y.Label.Text = "Coldstart Time (ms)"
	p.Add(plotter.NewGrid())

	var lines []any
	for _, name := range stats.BaseNames(input.Records) {
		if name == input.Baseline {
			continue
		}
		points := plotter.XYs{}
		for _, r := range input.Records {
			if r.BaseName != name || math.IsNaN(r.Difference) {
				continue
			}
			points = append(points, plotter.XY{X: float64(r.Memory), Y: r.Difference})
		}
		if len(points) == 0 {
			continue
		}
		lines = append(lines, name, points)
	}
	if len(lines) == 0 {
		return ErrNoChartData
	}

	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return errors.Wrap(err, "failed to add lines")
	}

	p.X.Tick.Marker = plot.ConstantTicks(lo.Map(stats.MemoryTiers(input.Records), func(m int, _ int) plot.Tick {
		return plot.Tick{Value: float64(m), Label: MemoryLabel(m)}
	}))
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, input.FilePath); err != nil {
		return errors.Wrapf(err, "failed to save chart %s", input.FilePath)
	}
	return nil
}
