package metrics

import (
	"sort"
	"strings"

	"github.com/binsquare/soctop/internal/powermetrics"
	"github.com/binsquare/soctop/internal/soc"
	"github.com/binsquare/soctop/internal/sysmon"
)

// Merge combines one raw sample with the host snapshot taken in the
// same tick and the static SoC description. It is pure and never
// fails; out-of-range inputs are clamped, ratios to [0,1] and watts
// and frequencies to >= 0.
//
// Clusters are partitioned into efficiency and performance groups by
// name prefix and sorted by name, so their identity and order never
// depend on the order powermetrics emitted them in. Per-core active
// ratios prefer the host snapshot value for the same OS CPU number;
// the raw idle_ratio is the fallback, since powermetrics reports
// unusable per-core residency on some chips.
func Merge(raw *powermetrics.Record, local sysmon.Snapshot, info *soc.Info) *Metrics {
	elapsedMS := float64(raw.ElapsedNS) / 1e6

	m := &Metrics{
		Consumption: Consumption{
			CPUW:     energyWatts(raw.Processor.CPUEnergyMJ, elapsedMS),
			GPUW:     energyWatts(raw.Processor.GPUEnergyMJ, elapsedMS),
			ANEW:     energyWatts(raw.Processor.ANEEnergyMJ, elapsedMS),
			PackageW: clampNonNeg(raw.Processor.CombinedPowerMW / 1e3),
		},
		GPU: GPUMetrics{
			FreqMHz:     clampNonNeg(raw.GPU.FreqMHz),
			FreqRatio:   freqRatio(raw.GPU.FreqMHz, raw.GPU.DVFM),
			ActiveRatio: clamp01(1 - raw.GPU.IdleRatio),
		},
		Memory: Memory{
			RAMUsed:   local.RAMUsed,
			RAMTotal:  local.RAMTotal,
			SwapUsed:  local.SwapUsed,
			SwapTotal: local.SwapTotal,
		},
		ThermalPressure: PressureFromLabel(raw.ThermalPressure),
	}

	for _, c := range raw.Processor.Clusters {
		cm := mergeCluster(c, local)
		switch {
		case strings.HasPrefix(c.Name, "E"):
			m.EClusters = append(m.EClusters, cm)
		case strings.HasPrefix(c.Name, "P"):
			m.PClusters = append(m.PClusters, cm)
		}
	}
	sortClusters(m.EClusters)
	sortClusters(m.PClusters)

	if info != nil && info.MaxANEW > 0 {
		m.ANEActiveRatio = clamp01(m.Consumption.ANEW / info.MaxANEW)
	}

	return m
}

func mergeCluster(c powermetrics.Cluster, local sysmon.Snapshot) ClusterMetrics {
	cm := ClusterMetrics{
		Name:      c.Name,
		FreqMHz:   clampNonNeg(c.FreqHz / 1e6),
		FreqRatio: freqRatio(c.FreqHz/1e6, c.DVFM),
		Cores:     make([]CoreMetrics, 0, len(c.CPUs)),
	}
	for _, cpu := range c.CPUs {
		active := clamp01(1 - cpu.IdleRatio)
		if cpu.ID >= 0 && cpu.ID < len(local.CoreActive) {
			active = clamp01(local.CoreActive[cpu.ID])
		}
		cm.Cores = append(cm.Cores, CoreMetrics{
			ID:          cpu.ID,
			FreqMHz:     clampNonNeg(cpu.FreqHz / 1e6),
			ActiveRatio: active,
		})
	}
	return cm
}

func sortClusters(cs []ClusterMetrics) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
}

// energyWatts converts millijoules accumulated over an interval into
// watts. Millijoules per millisecond is watts directly.
func energyWatts(mj uint64, elapsedMS float64) float64 {
	if elapsedMS <= 0 {
		return 0
	}
	return float64(mj) / elapsedMS
}

// freqRatio scales a frequency against the top entry of the DVFM
// table.
func freqRatio(freqMHz float64, states []powermetrics.DVFMState) float64 {
	var max uint16
	for _, st := range states {
		if st.FreqMHz > max {
			max = st.FreqMHz
		}
	}
	if max == 0 {
		return 0
	}
	return clamp01(freqMHz / float64(max))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampNonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
