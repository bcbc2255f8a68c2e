package tui

import (
	"fmt"
	"strings"

	"github.com/binsquare/soctop/internal/history"
	"github.com/binsquare/soctop/internal/pipeline"
	"github.com/binsquare/soctop/internal/sysmon"
)

// The tab builders are plain functions from a snapshot to styled text
// so they stay testable without a terminal.

func sectionTitle(accent, s string) string {
	return fmt.Sprintf("[%s::b]%s[-:-:-]", accent, s)
}

// barWidth fits the gauge between the label and the value columns.
func barWidth(total int) int {
	w := total - 42
	if w < 10 {
		w = 10
	}
	if w > 40 {
		w = 40
	}
	return w
}

func seriesOrEmpty(st *pipeline.State, key string) history.View[float64] {
	if view, ok := st.History[key]; ok {
		return view
	}
	return history.View[float64]{}
}

func overviewText(st *pipeline.State, accent string, width int) string {
	m := st.Metrics
	bw := barWidth(width)
	var b strings.Builder

	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "CPU"))
	b.WriteString("\n")
	for _, cl := range m.Clusters() {
		active := cl.ActiveRatio()
		fmt.Fprintf(&b, " %-10s %s %8s  %s\n",
			cl.Name, gaugeBar(active, bw), formatPercent(active), formatMHz(cl.FreqMHz))
		fmt.Fprintf(&b, " %-10s [%s]%s[-]\n",
			"", accent, sparkline(seriesOrEmpty(st, history.ClusterActiveKey(cl.Name)), bw, 1))
	}

	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "GPU and ANE"))
	b.WriteString("\n")
	fmt.Fprintf(&b, " %-10s %s %8s  %s\n",
		"GPU", gaugeBar(m.GPU.ActiveRatio, bw), formatPercent(m.GPU.ActiveRatio), formatMHz(m.GPU.FreqMHz))
	fmt.Fprintf(&b, " %-10s [%s]%s[-]\n",
		"", accent, sparkline(seriesOrEmpty(st, history.KeyGPUActive), bw, 1))
	fmt.Fprintf(&b, " %-10s %s %8s\n",
		"ANE", gaugeBar(m.ANEActiveRatio, bw), formatPercent(m.ANEActiveRatio))

	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "Power"))
	b.WriteString("\n")
	packageSeries := seriesOrEmpty(st, history.KeyPackageW)
	peak := history.Max(packageSeries)
	var maxW float64
	if st.Soc != nil {
		maxW = st.Soc.MaxPackageW
	}
	fmt.Fprintf(&b, " CPU %s   GPU %s   ANE %s\n",
		formatWatts(m.Consumption.CPUW), formatWatts(m.Consumption.GPUW), formatWatts(m.Consumption.ANEW))
	fmt.Fprintf(&b, " Total: %s (peak: %s)\n",
		formatWatts(m.Consumption.PackageW), formatWatts(peak))
	fmt.Fprintf(&b, " %-10s [%s]%s[-]\n",
		"", accent, sparkline(packageSeries, bw, maxW))

	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "Memory"))
	b.WriteString("\n")
	fmt.Fprintf(&b, " %-10s %s %8s  %s / %s\n",
		"RAM", gaugeBar(m.Memory.RAMRatio(), bw), formatPercent(m.Memory.RAMRatio()),
		formatBytes(m.Memory.RAMUsed), formatBytes(m.Memory.RAMTotal))
	fmt.Fprintf(&b, " %-10s %s %8s  %s / %s\n",
		"Swap", gaugeBar(m.Memory.SwapRatio(), bw), formatPercent(m.Memory.SwapRatio()),
		formatBytes(m.Memory.SwapUsed), formatBytes(m.Memory.SwapTotal))

	fmt.Fprintf(&b, "\n Thermal pressure: [%s]%s[-]\n",
		pressureColor(m.ThermalPressure), m.ThermalPressure)
	return b.String()
}

func cpuTabText(st *pipeline.State, accent string, width int) string {
	m := st.Metrics
	bw := barWidth(width)
	var b strings.Builder

	for _, cl := range m.Clusters() {
		fmt.Fprintf(&b, "\n %s  %s\n",
			sectionTitle(accent, cl.Name), formatMHz(cl.FreqMHz))
		for _, core := range cl.Cores {
			fmt.Fprintf(&b, "  core %2d   %s %8s  %s\n",
				core.ID, gaugeBar(core.ActiveRatio, bw), formatPercent(core.ActiveRatio), formatMHz(core.FreqMHz))
		}
		fmt.Fprintf(&b, "  %-9s [%s]%s[-]\n",
			"", accent, sparkline(seriesOrEmpty(st, history.ClusterActiveKey(cl.Name)), bw, 1))
	}
	fmt.Fprintf(&b, "\n CPU power: %s\n", formatWatts(m.Consumption.CPUW))
	return b.String()
}

func gpuTabText(st *pipeline.State, accent string, width int) string {
	m := st.Metrics
	bw := barWidth(width)
	var b strings.Builder

	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "GPU"))
	b.WriteString("\n")
	fmt.Fprintf(&b, " %-10s %s %8s\n",
		"Usage", gaugeBar(m.GPU.ActiveRatio, bw), formatPercent(m.GPU.ActiveRatio))
	fmt.Fprintf(&b, " %-10s [%s]%s[-]\n",
		"", accent, sparkline(seriesOrEmpty(st, history.KeyGPUActive), bw, 1))
	fmt.Fprintf(&b, " %-10s %s %8s  %s\n",
		"Frequency", gaugeBar(m.GPU.FreqRatio, bw), formatPercent(m.GPU.FreqRatio), formatMHz(m.GPU.FreqMHz))

	gpuSeries := seriesOrEmpty(st, history.KeyGPUW)
	var maxW float64
	if st.Soc != nil {
		maxW = st.Soc.MaxGPUW
	}
	fmt.Fprintf(&b, "\n GPU power: %s (peak: %s)\n",
		formatWatts(m.Consumption.GPUW), formatWatts(history.Max(gpuSeries)))
	fmt.Fprintf(&b, " %-10s [%s]%s[-]\n",
		"", accent, sparkline(gpuSeries, bw, maxW))

	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "ANE"))
	b.WriteString("\n")
	fmt.Fprintf(&b, " %-10s %s %8s\n",
		"Usage", gaugeBar(m.ANEActiveRatio, bw), formatPercent(m.ANEActiveRatio))
	fmt.Fprintf(&b, " ANE power: %s\n", formatWatts(m.Consumption.ANEW))
	return b.String()
}

func memoryTabText(st *pipeline.State, vm sysmon.VMStat, vmOK bool, accent string, width int) string {
	m := st.Metrics
	bw := barWidth(width)
	var b strings.Builder

	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "Memory"))
	b.WriteString("\n")
	fmt.Fprintf(&b, " %-10s %s %8s  %s / %s\n",
		"RAM", gaugeBar(m.Memory.RAMRatio(), bw), formatPercent(m.Memory.RAMRatio()),
		formatBytes(m.Memory.RAMUsed), formatBytes(m.Memory.RAMTotal))
	fmt.Fprintf(&b, " %-10s %s %8s  %s / %s\n",
		"Swap", gaugeBar(m.Memory.SwapRatio(), bw), formatPercent(m.Memory.SwapRatio()),
		formatBytes(m.Memory.SwapUsed), formatBytes(m.Memory.SwapTotal))

	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "Breakdown"))
	b.WriteString("\n")
	if !vmOK {
		b.WriteString(" collecting vm_stat details...\n")
		return b.String()
	}
	rows := []struct {
		label string
		bytes uint64
	}{
		{"App memory", vm.AppBytes()},
		{"Wired", vm.Wired},
		{"Compressed", vm.Compressed},
		{"Memory used", vm.UsedBytes()},
		{"Cached files", vm.FileBacked},
		{"Free", vm.Free},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, " %-14s %10s\n", row.label, formatBytes(row.bytes))
	}
	return b.String()
}

func socTabText(st *pipeline.State, accent string) string {
	var b strings.Builder
	b.WriteString("\n ")
	b.WriteString(sectionTitle(accent, "SoC"))
	b.WriteString("\n")
	if st.Soc == nil {
		b.WriteString(" no SoC information available\n")
		return b.String()
	}
	soc := st.Soc

	rows := []struct {
		label string
		value string
	}{
		{"Chip", soc.BrandName},
		{"CPU cores", fmt.Sprintf("%d (%dE + %dP)", soc.CPUCores, soc.EfficiencyCores, soc.PerformanceCores)},
		{"GPU cores", fmt.Sprintf("%d", soc.GPUCores)},
		{"Max CPU power", formatWatts(soc.MaxCPUW)},
		{"Max GPU power", formatWatts(soc.MaxGPUW)},
		{"Max ANE power", formatWatts(soc.MaxANEW)},
		{"Max package power", formatWatts(soc.MaxPackageW)},
	}
	if soc.Hostname != "" {
		rows = append(rows, struct {
			label string
			value string
		}{"Hostname", soc.Hostname})
	}
	if soc.OSVersion != "" {
		rows = append(rows, struct {
			label string
			value string
		}{"OS", soc.OSVersion})
	}
	for _, row := range rows {
		fmt.Fprintf(&b, " %-18s %s\n", row.label, row.value)
	}
	return b.String()
}
