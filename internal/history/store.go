package history

import (
	"sort"

	"github.com/binsquare/soctop/internal/metrics"
)

// Series keys for the dimensions the dashboard and report chart.
// Cluster series are name-keyed so multi-die chips (two E clusters,
// four P clusters) chart independently.
const (
	KeyGPUActive = "gpu_active"
	KeyGPUFreq   = "gpu_freq"
	KeyANEActive = "ane_active"
	KeyCPUW      = "cpu_w"
	KeyGPUW      = "gpu_w"
	KeyANEW      = "ane_w"
	KeyPackageW  = "package_w"
	KeyRAMRatio  = "ram_ratio"
	KeySwapRatio = "swap_ratio"
)

// ClusterActiveKey returns the series key for a cluster's active ratio.
func ClusterActiveKey(name string) string { return "cluster_active:" + name }

// ClusterFreqKey returns the series key for a cluster's frequency ratio.
func ClusterFreqKey(name string) string { return "cluster_freq:" + name }

// Store owns one fixed-capacity buffer per charted series. It is
// confined to the sampling goroutine; readers only ever touch the
// immutable views handed out by Snapshot.
type Store struct {
	capacity int
	series   map[string]*Buffer[float64]
}

// NewStore returns a store whose buffers hold capacity samples each.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		series:   make(map[string]*Buffer[float64]),
	}
}

// Capacity returns the per-series capacity.
func (s *Store) Capacity() int { return s.capacity }

func (s *Store) buffer(key string) *Buffer[float64] {
	b := s.series[key]
	if b == nil {
		b = NewBuffer[float64](s.capacity)
		s.series[key] = b
	}
	return b
}

// Push appends one sample to a single series.
func (s *Store) Push(key string, v float64) {
	s.buffer(key).Push(v)
}

// Observe appends one sample per tracked series from a merged snapshot.
func (s *Store) Observe(m *metrics.Metrics) {
	for _, c := range m.Clusters() {
		s.Push(ClusterActiveKey(c.Name), c.ActiveRatio())
		s.Push(ClusterFreqKey(c.Name), c.FreqRatio)
	}
	s.Push(KeyGPUActive, m.GPU.ActiveRatio)
	s.Push(KeyGPUFreq, m.GPU.FreqRatio)
	s.Push(KeyANEActive, m.ANEActiveRatio)
	s.Push(KeyCPUW, m.Consumption.CPUW)
	s.Push(KeyGPUW, m.Consumption.GPUW)
	s.Push(KeyANEW, m.Consumption.ANEW)
	s.Push(KeyPackageW, m.Consumption.PackageW)
	s.Push(KeyRAMRatio, m.Memory.RAMRatio())
	s.Push(KeySwapRatio, m.Memory.SwapRatio())
}

// Snapshot returns a fresh key-to-view map of every series. The map is
// the caller's to keep; the views inside never change.
func (s *Store) Snapshot() map[string]View[float64] {
	out := make(map[string]View[float64], len(s.series))
	for key, b := range s.series {
		out[key] = b.View()
	}
	return out
}

// Keys returns the tracked series keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.series))
	for key := range s.series {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
