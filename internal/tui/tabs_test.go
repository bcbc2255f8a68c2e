package tui

import (
	"strings"
	"testing"

	"github.com/binsquare/soctop/internal/history"
	"github.com/binsquare/soctop/internal/metrics"
	"github.com/binsquare/soctop/internal/pipeline"
	"github.com/binsquare/soctop/internal/soc"
	"github.com/binsquare/soctop/internal/sysmon"
)

func dashboardState() *pipeline.State {
	return &pipeline.State{
		Seq: 7,
		Soc: &soc.Info{
			BrandName:        "Apple M1",
			CPUCores:         8,
			EfficiencyCores:  4,
			PerformanceCores: 4,
			GPUCores:         8,
			MaxCPUW:          20,
			MaxGPUW:          20,
			MaxANEW:          8,
			MaxPackageW:      48,
			Hostname:         "mini.local",
			OSVersion:        "macOS 15.3",
		},
		Metrics: &metrics.Metrics{
			EClusters: []metrics.ClusterMetrics{{
				Name:    "E-Cluster",
				FreqMHz: 1022,
				Cores: []metrics.CoreMetrics{
					{ID: 0, FreqMHz: 1046, ActiveRatio: 0.25},
					{ID: 1, FreqMHz: 1046, ActiveRatio: 0.75},
				},
			}},
			PClusters: []metrics.ClusterMetrics{{
				Name:    "P-Cluster",
				FreqMHz: 3030,
				Cores:   []metrics.CoreMetrics{{ID: 4, FreqMHz: 3204, ActiveRatio: 0.9}},
			}},
			GPU:             metrics.GPUMetrics{FreqMHz: 714, FreqRatio: 0.56, ActiveRatio: 0.35},
			ANEActiveRatio:  0.1,
			Consumption:     metrics.Consumption{CPUW: 0.089, GPUW: 0.031, ANEW: 0.004, PackageW: 5.5},
			Memory:          metrics.Memory{RAMUsed: 8 << 30, RAMTotal: 16 << 30, SwapUsed: 1 << 30, SwapTotal: 2 << 30},
			ThermalPressure: metrics.PressureNominal,
		},
		History: map[string]history.View[float64]{
			history.ClusterActiveKey("E-Cluster"): seriesOf(0.2, 0.5),
			history.ClusterActiveKey("P-Cluster"): seriesOf(0.9),
			history.KeyGPUActive:                  seriesOf(0.3, 0.35),
			history.KeyGPUW:                       seriesOf(0.02, 0.031),
			history.KeyPackageW:                   seriesOf(4.0, 5.5),
		},
	}
}

// TestBarWidth tests the gauge width clamping
func TestBarWidth(t *testing.T) {
	testCases := []struct {
		total int
		want  int
	}{
		{80, 38},
		{120, 40},
		{40, 10},
		{0, 10},
	}
	for _, tc := range testCases {
		if got := barWidth(tc.total); got != tc.want {
			t.Errorf("barWidth(%d) = %d, expected %d", tc.total, got, tc.want)
		}
	}
}

// TestSeriesOrEmpty tests the history lookup fallback
func TestSeriesOrEmpty(t *testing.T) {
	st := dashboardState()
	if got := seriesOrEmpty(st, history.KeyGPUActive); got.Len() != 2 {
		t.Errorf("existing series should be returned, got length %d", got.Len())
	}
	if got := seriesOrEmpty(st, "no_such_series"); got.Len() != 0 {
		t.Errorf("missing series should be empty, got length %d", got.Len())
	}
}

// TestOverviewText tests the overview tab sections
func TestOverviewText(t *testing.T) {
	got := overviewText(dashboardState(), "cyan", 80)

	for _, want := range []string{
		"CPU",
		"E-Cluster",
		"P-Cluster",
		"GPU and ANE",
		"Power",
		"Total: 5.50 W",
		"Memory",
		"RAM",
		"Swap",
		"Thermal pressure: [green]Nominal[-]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("overview should contain %q\n%s", want, got)
		}
	}

	// Cluster rows carry the mean utilization and the frequency.
	if !strings.Contains(got, "50.0 %") {
		t.Errorf("E cluster mean utilization missing\n%s", got)
	}
	if !strings.Contains(got, "1022 MHz") {
		t.Errorf("E cluster frequency missing\n%s", got)
	}
	// Peak package power comes from history.
	if !strings.Contains(got, "peak: 5.50 W") {
		t.Errorf("package peak missing\n%s", got)
	}
}

// TestCPUTabText tests the per-core rows
func TestCPUTabText(t *testing.T) {
	got := cpuTabText(dashboardState(), "cyan", 80)

	for _, want := range []string{
		"E-Cluster",
		"P-Cluster",
		"core  0",
		"core  1",
		"core  4",
		"25.0 %",
		"90.0 %",
		"3204 MHz",
		"CPU power: 89 mW",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("cpu tab should contain %q\n%s", want, got)
		}
	}
}

// TestGPUTabText tests the GPU and ANE sections
func TestGPUTabText(t *testing.T) {
	got := gpuTabText(dashboardState(), "cyan", 80)

	for _, want := range []string{
		"GPU",
		"Usage",
		"35.0 %",
		"Frequency",
		"714 MHz",
		"GPU power: 31 mW",
		"ANE",
		"ANE power: 4 mW",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("gpu tab should contain %q\n%s", want, got)
		}
	}
}

// TestMemoryTabText tests the occupancy rows and the vm_stat breakdown
func TestMemoryTabText(t *testing.T) {
	st := dashboardState()

	got := memoryTabText(st, sysmon.VMStat{}, false, "cyan", 80)
	if !strings.Contains(got, "collecting vm_stat details") {
		t.Errorf("missing breakdown placeholder\n%s", got)
	}
	if !strings.Contains(got, "8.00 GB / 16.00 GB") {
		t.Errorf("RAM row missing\n%s", got)
	}

	vm := sysmon.VMStat{
		Free:       2 << 30,
		Anonymous:  6 << 30,
		Purgeable:  1 << 30,
		Wired:      1 << 30,
		Compressed: 1 << 30,
		FileBacked: 3 << 30,
	}
	got = memoryTabText(st, vm, true, "cyan", 80)
	for _, want := range []string{
		"App memory",
		"5.00 GB",
		"Wired",
		"Compressed",
		"Memory used",
		"7.00 GB",
		"Cached files",
		"Free",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("breakdown should contain %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "collecting vm_stat details") {
		t.Errorf("placeholder should be gone once the cache is warm\n%s", got)
	}
}

// TestSocTabText tests the static chip description rows
func TestSocTabText(t *testing.T) {
	got := socTabText(dashboardState(), "cyan")

	for _, want := range []string{
		"Chip",
		"Apple M1",
		"8 (4E + 4P)",
		"Max CPU power",
		"20.00 W",
		"Max package power",
		"48.00 W",
		"Hostname",
		"mini.local",
		"OS",
		"macOS 15.3",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("soc tab should contain %q\n%s", want, got)
		}
	}

	st := dashboardState()
	st.Soc = nil
	if got := socTabText(st, "cyan"); !strings.Contains(got, "no SoC information available") {
		t.Errorf("missing placeholder without soc info\n%s", got)
	}

	st = dashboardState()
	st.Soc.Hostname = ""
	st.Soc.OSVersion = ""
	got = socTabText(st, "cyan")
	if strings.Contains(got, "Hostname") || strings.Contains(got, "OS ") {
		t.Errorf("optional rows should be omitted when empty\n%s", got)
	}
}
