package tui

import (
	"fmt"
	"strings"

	"github.com/binsquare/soctop/internal/history"
	"github.com/binsquare/soctop/internal/metrics"
	"github.com/binsquare/soctop/internal/pipeline"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// gaugeBar renders a fixed-width usage bar like "[green]███[-][gray]░░░░░[-]".
// ratio is 0..1; the fill colour shifts with load.
func gaugeBar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}

	var b strings.Builder
	if filled > 0 {
		b.WriteString("[")
		b.WriteString(loadColor(ratio))
		b.WriteString("]")
		b.WriteString(strings.Repeat("█", filled))
		b.WriteString("[-]")
	}
	if filled < width {
		b.WriteString("[gray]")
		b.WriteString(strings.Repeat("░", width-filled))
		b.WriteString("[-]")
	}
	return b.String()
}

func loadColor(ratio float64) string {
	switch {
	case ratio > 0.8:
		return "red"
	case ratio > 0.5:
		return "yellow"
	default:
		return "green"
	}
}

// sparkline renders the most recent width samples of a series scaled
// against max. A non-positive max scales against the series peak.
func sparkline(view history.View[float64], width int, max float64) string {
	if width <= 0 {
		return ""
	}
	if max <= 0 {
		max = history.Max(view)
	}

	tail := view.Tail(width)
	var b strings.Builder
	for i := tail.Len(); i < width; i++ {
		b.WriteRune(' ')
	}
	for i := 0; i < tail.Len(); i++ {
		idx := 0
		if max > 0 {
			idx = int(tail.At(i) / max * float64(len(sparkRunes)-1))
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkRunes) {
			idx = len(sparkRunes) - 1
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

func formatWatts(w float64) string {
	if w < 1 {
		return fmt.Sprintf("%.0f mW", w*1000)
	}
	return fmt.Sprintf("%.2f W", w)
}

func formatMHz(mhz float64) string {
	return fmt.Sprintf("%.0f MHz", mhz)
}

func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f %%", ratio*100)
}

func formatBytes(n uint64) string {
	const gb = 1 << 30
	const mb = 1 << 20
	if n >= gb {
		return fmt.Sprintf("%.2f GB", float64(n)/gb)
	}
	return fmt.Sprintf("%.0f MB", float64(n)/mb)
}

func pressureColor(p metrics.Pressure) string {
	switch p {
	case metrics.PressureNominal:
		return "green"
	case metrics.PressureModerate:
		return "yellow"
	case metrics.PressureHeavy, metrics.PressureTrapping:
		return "red"
	case metrics.PressureSleeping:
		return "blue"
	default:
		return "gray"
	}
}

func headerText(st *pipeline.State, phase pipeline.Phase, version, accent string) string {
	title := fmt.Sprintf(" [%s::b]soctop v%s[-:-:-]", accent, version)
	if st == nil || st.Soc == nil {
		return fmt.Sprintf("%s   [gray]%s[-]", title, phase)
	}
	soc := st.Soc
	out := fmt.Sprintf("%s - %s (cores: %dE+%dP+%dGPU)",
		title, soc.BrandName, soc.EfficiencyCores, soc.PerformanceCores, soc.GPUCores)
	if st.Metrics != nil {
		p := st.Metrics.ThermalPressure
		out += fmt.Sprintf("   [%s]%s[-]", pressureColor(p), p)
	}
	return out
}

func tabBarText(current int, accent string) string {
	var b strings.Builder
	b.WriteString(" ")
	for i, title := range tabTitles {
		if i > 0 {
			b.WriteString(" [gray]|[-] ")
		}
		if i == current {
			fmt.Fprintf(&b, "[black:%s] %s [-:-]", accent, title)
		} else {
			fmt.Fprintf(&b, "[gray]%d[-] %s", i+1, title)
		}
	}
	return b.String()
}

func startupText(phase pipeline.Phase) string {
	switch phase {
	case pipeline.PhaseFailed:
		return "\n  [red]sampling failed[-]\n\n  powermetrics could not be kept running. Check the log file\n  and make sure soctop runs with root privileges.\n\n  Press q to quit."
	default:
		return "\n  Starting up...\n\n  Waiting for the first powermetrics sample. This usually\n  takes one sampling interval.\n\n  Press q to quit."
	}
}
