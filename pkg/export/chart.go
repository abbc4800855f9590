package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/portlogistics/portplan/core/comparison"
	"github.com/portlogistics/portplan/core/model"
)

// RenderRebalanceChart writes an HTML page with the dock occupancy before and
// after the proposal as grouped bars.
func RenderRebalanceChart(w io.Writer, p model.RebalanceProposal) error {
	bar := charts.NewBar()
	s := p.OptimizationSummary
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Dock load %s", p.Day),
			Subtitle: fmt.Sprintf("std-dev %.2fh -> %.2fh (%.1f%%)", s.StdDevBefore, s.StdDevAfter, s.ImprovementPercent),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Dock"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Occupied hours"}),
	)

	docks := make([]string, 0, len(s.DockLoads))
	before := make([]opts.BarData, 0, len(s.DockLoads))
	after := make([]opts.BarData, 0, len(s.DockLoads))
	for _, l := range s.DockLoads {
		docks = append(docks, l.Dock)
		before = append(before, opts.BarData{Value: l.Before})
		after = append(after, opts.BarData{Value: l.After})
	}
	bar.SetXAxis(docks).
		AddSeries("Before", before).
		AddSeries("After", after)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// RenderComparisonChart writes an HTML page with the total delay of every
// computed algorithm.
func RenderComparisonChart(w io.Writer, c comparison.Comparison) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Algorithm comparison %s", c.Day)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Algorithm"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Total delay (h)"}),
	)
	var (
		names []string
		delay []opts.BarData
		hours []opts.BarData
	)
	for _, r := range c.Results {
		if !r.Computed {
			continue
		}
		names = append(names, string(r.Algorithm))
		delay = append(delay, opts.BarData{Value: r.TotalDelay})
		hours = append(hours, opts.BarData{Value: r.TotalCraneHours})
	}
	bar.SetXAxis(names).
		AddSeries("Total delay", delay).
		AddSeries("Crane hours", hours)
	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
