package sysmon

import (
	"context"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_FirstSnapshotSeedsBaseline(t *testing.T) {
	m := NewMonitor()

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, snap.CoreActive)
	for i, v := range snap.CoreActive {
		assert.Equal(t, 0.0, v, "core %d before a baseline exists", i)
	}
	assert.NotZero(t, snap.RAMTotal)
	assert.LessOrEqual(t, snap.RAMUsed, snap.RAMTotal)
}

func TestMonitor_SecondSnapshotYieldsRatios(t *testing.T) {
	m := NewMonitor()

	_, err := m.Snapshot(context.Background())
	require.NoError(t, err)

	// Let the counters advance a little.
	time.Sleep(50 * time.Millisecond)

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, snap.CoreActive)
	for i, v := range snap.CoreActive {
		assert.GreaterOrEqual(t, v, 0.0, "core %d", i)
		assert.LessOrEqual(t, v, 1.0, "core %d", i)
	}
}

func TestBusyAndTotal(t *testing.T) {
	prev := cpu.TimesStat{User: 10, System: 5, Idle: 85, Iowait: 0}

	t.Run("half busy interval", func(t *testing.T) {
		curr := cpu.TimesStat{User: 14, System: 6, Idle: 90, Iowait: 0}
		busy, total := busyAndTotal(curr, prev)
		assert.InDelta(t, 5.0, busy, 1e-9)
		assert.InDelta(t, 10.0, total, 1e-9)
	})

	t.Run("iowait counts as idle", func(t *testing.T) {
		curr := cpu.TimesStat{User: 12, System: 5, Idle: 90, Iowait: 3}
		busy, total := busyAndTotal(curr, prev)
		assert.InDelta(t, 2.0, busy, 1e-9)
		assert.InDelta(t, 10.0, total, 1e-9)
	})

	t.Run("counter reset floors at zero", func(t *testing.T) {
		curr := cpu.TimesStat{User: 0, System: 0, Idle: 0, Iowait: 0}
		busy, total := busyAndTotal(curr, prev)
		assert.Equal(t, 0.0, busy)
		assert.Equal(t, 0.0, total)
	})
}

func TestSnapshot_Ratios(t *testing.T) {
	s := Snapshot{RAMUsed: 4, RAMTotal: 16, SwapUsed: 1, SwapTotal: 4}
	assert.InDelta(t, 0.25, s.RAMRatio(), 1e-9)
	assert.InDelta(t, 0.25, s.SwapRatio(), 1e-9)

	assert.Equal(t, 0.0, Snapshot{}.RAMRatio())
	assert.Equal(t, 0.0, Snapshot{}.SwapRatio())
}
