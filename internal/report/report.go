// Package report renders the persisted equity history as a standalone HTML
// chart. Read-only consumer of the snapshot store.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"etfbot/internal/equity"
	"etfbot/internal/logger"
)

type SnapshotSource interface {
	All(ctx context.Context) ([]equity.Snapshot, error)
}

// WriteEquityCurve renders the full daily equity series to an HTML file.
func WriteEquityCurve(ctx context.Context, src SnapshotSource, outPath string) error {
	snaps, err := src.All(ctx)
	if err != nil {
		return fmt.Errorf("report: load snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return fmt.Errorf("report: no equity snapshots to plot")
	}

	dates := make([]string, 0, len(snaps))
	values := make([]opts.LineData, 0, len(snaps))
	for _, s := range snaps {
		dates = append(dates, s.Date)
		values = append(values, opts.LineData{Value: s.Equity})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Daily Equity",
			Subtitle: fmt.Sprintf("%s to %s", snaps[0].Date, snaps[len(snaps)-1].Date),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(dates)
	line.AddSeries("Equity", values,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", outPath, err)
	}
	defer f.Close()

	page := components.NewPage()
	page.AddCharts(line)
	if err := page.Render(f); err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	logger.Infof("report: wrote equity curve with %d points to %s", len(snaps), outPath)
	return nil
}
