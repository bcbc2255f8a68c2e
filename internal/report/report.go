// Package report renders a stream of recorded snapshots into a static
// HTML page of line charts.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/binsquare/soctop/internal/export"
)

// Write renders charts for records into w: power per domain, cluster
// and GPU utilization, and RAM occupancy.
func Write(records []export.Record, w io.Writer) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to chart")
	}

	labels := make([]string, len(records))
	for i, rec := range records {
		labels[i] = rec.Timestamp.Format("15:04:05")
	}

	page := components.NewPage()
	page.PageTitle = pageTitle(records[0])
	page.AddCharts(
		powerChart(records, labels),
		clusterChart(records, labels),
		gpuChart(records, labels),
		memoryChart(records, labels),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

// WriteFile renders the page into a file at path.
func WriteFile(records []export.Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(records, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func pageTitle(rec export.Record) string {
	brand := "soctop"
	if rec.Soc != nil && rec.Soc.BrandName != "" {
		brand = rec.Soc.BrandName
	}
	return fmt.Sprintf("soctop report - %s - %s", brand, rec.Timestamp.Format(time.DateOnly))
}

func newLine(title, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)
	return line
}

func lineData(records []export.Record, pick func(export.Record) float64) []opts.LineData {
	data := make([]opts.LineData, len(records))
	for i, rec := range records {
		data[i] = opts.LineData{Value: pick(rec)}
	}
	return data
}

func smooth() charts.SeriesOpts {
	return charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)})
}

func powerChart(records []export.Record, labels []string) *charts.Line {
	line := newLine("Power Consumption", "W")
	line.SetXAxis(labels).
		AddSeries("CPU", lineData(records, func(r export.Record) float64 { return r.Metrics.Consumption.CPUW }), smooth()).
		AddSeries("GPU", lineData(records, func(r export.Record) float64 { return r.Metrics.Consumption.GPUW }), smooth()).
		AddSeries("ANE", lineData(records, func(r export.Record) float64 { return r.Metrics.Consumption.ANEW }), smooth()).
		AddSeries("Package", lineData(records, func(r export.Record) float64 { return r.Metrics.Consumption.PackageW }), smooth())
	return line
}

// clusterChart plots each cluster's mean active ratio. The cluster
// set comes from the first record; records missing a cluster
// contribute zero, which keeps series aligned with the x axis.
func clusterChart(records []export.Record, labels []string) *charts.Line {
	line := newLine("CPU Cluster Utilization", "%")
	line.SetXAxis(labels)

	for _, c := range records[0].Metrics.Clusters() {
		name := c.Name
		line.AddSeries(name, lineData(records, func(r export.Record) float64 {
			for _, rc := range r.Metrics.Clusters() {
				if rc.Name == name {
					return 100 * rc.ActiveRatio()
				}
			}
			return 0
		}), smooth())
	}
	return line
}

func gpuChart(records []export.Record, labels []string) *charts.Line {
	line := newLine("GPU Utilization", "%")
	line.SetXAxis(labels).
		AddSeries("GPU active", lineData(records, func(r export.Record) float64 {
			return 100 * r.Metrics.GPU.ActiveRatio
		}), smooth()).
		AddSeries("ANE active", lineData(records, func(r export.Record) float64 {
			return 100 * r.Metrics.ANEActiveRatio
		}), smooth())
	return line
}

func memoryChart(records []export.Record, labels []string) *charts.Line {
	const gb = 1024 * 1024 * 1024
	line := newLine("Memory", "GB")
	line.SetXAxis(labels).
		AddSeries("RAM used", lineData(records, func(r export.Record) float64 {
			return float64(r.Metrics.Memory.RAMUsed) / gb
		}), smooth()).
		AddSeries("Swap used", lineData(records, func(r export.Record) float64 {
			return float64(r.Metrics.Memory.SwapUsed) / gb
		}), smooth())
	return line
}
