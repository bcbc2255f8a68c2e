// Package metrics defines the merged per-tick snapshot model and the
// pure merger that builds it from a raw sample, a host snapshot and
// the SoC description.
package metrics

// Metrics is one merged snapshot. The json tags define the stream
// record schema emitted by run --json.
type Metrics struct {
	EClusters       []ClusterMetrics `json:"e_clusters"`
	PClusters       []ClusterMetrics `json:"p_clusters"`
	GPU             GPUMetrics       `json:"gpu"`
	ANEActiveRatio  float64          `json:"ane_active_ratio"`
	Consumption     Consumption      `json:"consumption"`
	Memory          Memory           `json:"memory"`
	ThermalPressure Pressure         `json:"thermal_pressure"`
}

// Clusters returns all clusters, efficiency first.
func (m *Metrics) Clusters() []ClusterMetrics {
	out := make([]ClusterMetrics, 0, len(m.EClusters)+len(m.PClusters))
	out = append(out, m.EClusters...)
	return append(out, m.PClusters...)
}

// CoreCount returns the number of cores across all clusters.
func (m *Metrics) CoreCount() int {
	n := 0
	for _, c := range m.EClusters {
		n += len(c.Cores)
	}
	for _, c := range m.PClusters {
		n += len(c.Cores)
	}
	return n
}

// ClusterMetrics is one CPU cluster's share of a snapshot.
type ClusterMetrics struct {
	Name      string        `json:"name"`
	FreqMHz   float64       `json:"freq_mhz"`
	FreqRatio float64       `json:"freq_ratio"`
	Cores     []CoreMetrics `json:"cpus"`
}

// ActiveRatio is the mean active ratio of the cluster's cores.
func (c ClusterMetrics) ActiveRatio() float64 {
	if len(c.Cores) == 0 {
		return 0
	}
	var sum float64
	for _, core := range c.Cores {
		sum += core.ActiveRatio
	}
	return sum / float64(len(c.Cores))
}

// CoreMetrics is one core's share of a snapshot. ID is the OS CPU
// number.
type CoreMetrics struct {
	ID          int     `json:"id"`
	FreqMHz     float64 `json:"freq_mhz"`
	ActiveRatio float64 `json:"active_ratio"`
}

// GPUMetrics is the GPU's share of a snapshot.
type GPUMetrics struct {
	FreqMHz     float64 `json:"freq_mhz"`
	FreqRatio   float64 `json:"freq_ratio"`
	ActiveRatio float64 `json:"active_ratio"`
}

// Consumption is the per-domain power draw in watts.
type Consumption struct {
	CPUW     float64 `json:"cpu_w"`
	GPUW     float64 `json:"gpu_w"`
	ANEW     float64 `json:"ane_w"`
	PackageW float64 `json:"package_w"`
}

// Memory is RAM and swap occupancy in bytes.
type Memory struct {
	RAMUsed   uint64 `json:"ram_used"`
	RAMTotal  uint64 `json:"ram_total"`
	SwapUsed  uint64 `json:"swap_used"`
	SwapTotal uint64 `json:"swap_total"`
}

// RAMRatio returns used RAM as a fraction of total.
func (m Memory) RAMRatio() float64 {
	if m.RAMTotal == 0 {
		return 0
	}
	return float64(m.RAMUsed) / float64(m.RAMTotal)
}

// SwapRatio returns used swap as a fraction of total.
func (m Memory) SwapRatio() float64 {
	if m.SwapTotal == 0 {
		return 0
	}
	return float64(m.SwapUsed) / float64(m.SwapTotal)
}
