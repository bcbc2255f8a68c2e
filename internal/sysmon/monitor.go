// Package sysmon reads host-level utilization the OS hands out without
// privileges: per-core CPU activity from cumulative time counters and
// memory/swap occupancy. It complements the privileged sampler, whose
// per-core residency numbers are unreliable on some chips.
package sysmon

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is one quick reading of host state.
type Snapshot struct {
	// Active ratio per OS CPU number, in [0,1]. Zeros on the first
	// snapshot, which only seeds the baseline.
	CoreActive []float64

	RAMUsed   uint64
	RAMTotal  uint64
	SwapUsed  uint64
	SwapTotal uint64
}

// RAMRatio returns used RAM as a fraction of total.
func (s Snapshot) RAMRatio() float64 {
	if s.RAMTotal == 0 {
		return 0
	}
	return float64(s.RAMUsed) / float64(s.RAMTotal)
}

// SwapRatio returns used swap as a fraction of total.
func (s Snapshot) SwapRatio() float64 {
	if s.SwapTotal == 0 {
		return 0
	}
	return float64(s.SwapUsed) / float64(s.SwapTotal)
}

// Monitor derives per-core active ratios from the deltas between
// consecutive snapshots. It is meant to be driven by the single
// sampling goroutine.
type Monitor struct {
	prev []cpu.TimesStat
}

// NewMonitor returns a monitor with no baseline yet.
func NewMonitor() *Monitor { return &Monitor{} }

// Snapshot reads current CPU, RAM and swap state. It never spawns a
// process and returns quickly.
func (m *Monitor) Snapshot(ctx context.Context) (Snapshot, error) {
	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read cpu times: %w", err)
	}

	active := make([]float64, len(times))
	if len(m.prev) == len(times) {
		for i := range times {
			busy, total := busyAndTotal(times[i], m.prev[i])
			if total > 0 {
				active[i] = clamp01(busy / total)
			}
		}
	}
	m.prev = times

	snap := Snapshot{CoreActive: active}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snap, fmt.Errorf("read virtual memory: %w", err)
	}
	snap.RAMUsed = vm.Used
	snap.RAMTotal = vm.Total

	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return snap, fmt.Errorf("read swap: %w", err)
	}
	snap.SwapUsed = sw.Used
	snap.SwapTotal = sw.Total

	return snap, nil
}

func busyAndTotal(curr, prev cpu.TimesStat) (busy, total float64) {
	total = curr.Total() - prev.Total()
	idle := (curr.Idle - prev.Idle) + (curr.Iowait - prev.Iowait)
	if idle < 0 {
		idle = 0
	}
	busy = total - idle
	if busy < 0 {
		busy = 0
	}
	if total < 0 {
		total = 0
	}
	return busy, total
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
