package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binsquare/soctop/internal/export"
	"github.com/binsquare/soctop/internal/metrics"
	"github.com/binsquare/soctop/internal/soc"
)

func sampleRecords(n int) []export.Record {
	recs := make([]export.Record, n)
	for i := range recs {
		recs[i] = export.Record{
			Timestamp: time.Date(2026, 3, 14, 9, 30, i, 0, time.UTC),
			Soc:       &soc.Info{BrandName: "Apple M1"},
			Metrics: &metrics.Metrics{
				EClusters: []metrics.ClusterMetrics{{
					Name:    "E-Cluster",
					FreqMHz: 1000 + float64(i),
					Cores:   []metrics.CoreMetrics{{ID: 0, ActiveRatio: 0.5}},
				}},
				PClusters: []metrics.ClusterMetrics{{
					Name:    "P-Cluster",
					FreqMHz: 3000,
					Cores:   []metrics.CoreMetrics{{ID: 4, ActiveRatio: 0.9}},
				}},
				GPU:             metrics.GPUMetrics{FreqMHz: 714, ActiveRatio: 0.3},
				ANEActiveRatio:  0.05,
				Consumption:     metrics.Consumption{CPUW: 1, GPUW: 2, ANEW: 0.5, PackageW: 3.5},
				Memory:          metrics.Memory{RAMUsed: 8 << 30, RAMTotal: 16 << 30, SwapUsed: 1 << 30, SwapTotal: 2 << 30},
				ThermalPressure: metrics.PressureNominal,
			},
		}
	}
	return recs
}

func TestWrite_RendersAllCharts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(sampleRecords(3), &buf))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "soctop report - Apple M1 - 2026-03-14")

	for _, title := range []string{
		"Power Consumption",
		"CPU Cluster Utilization",
		"GPU Utilization",
		"Memory",
	} {
		assert.Contains(t, html, title)
	}

	// Series names and x axis labels end up in the chart options.
	assert.Contains(t, html, "Package")
	assert.Contains(t, html, "E-Cluster")
	assert.Contains(t, html, "P-Cluster")
	assert.Contains(t, html, "09:30:02")
}

func TestWrite_EmptyInputIsAnError(t *testing.T) {
	var buf bytes.Buffer
	err := Write(nil, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records")
	assert.Zero(t, buf.Len())
}

func TestWrite_ToleratesShiftingClusterSets(t *testing.T) {
	recs := sampleRecords(3)
	// A record mid-stream that lost its P cluster must not derail the
	// series built from the first record's cluster set.
	recs[1].Metrics.PClusters = nil

	var buf bytes.Buffer
	require.NoError(t, Write(recs, &buf))
	assert.Contains(t, buf.String(), "P-Cluster")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteFile(sampleRecords(2), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Power Consumption")
}

func TestWriteFile_BadPath(t *testing.T) {
	err := WriteFile(sampleRecords(1), filepath.Join(t.TempDir(), "missing", "report.html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}

func TestPageTitle_FallsBackWithoutSoc(t *testing.T) {
	rec := export.Record{Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
	assert.Equal(t, "soctop report - soctop - 2026-03-14", pageTitle(rec))

	rec.Soc = &soc.Info{BrandName: "Apple M2 Max"}
	assert.Equal(t, "soctop report - Apple M2 Max - 2026-03-14", pageTitle(rec))
}
