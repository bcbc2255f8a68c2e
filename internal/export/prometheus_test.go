package export

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binsquare/soctop/internal/metrics"
)

func TestExporter_ObserveSetsEveryGauge(t *testing.T) {
	x := NewExporter()
	st := testState(1, 0.0594301)
	st.Metrics.ThermalPressure = metrics.PressureModerate
	x.Observe(st)

	assert.InDelta(t, 0.5, testutil.ToFloat64(x.clusterActive.WithLabelValues("E-Cluster")), 1e-9)
	assert.InDelta(t, 1022, testutil.ToFloat64(x.clusterFreq.WithLabelValues("E-Cluster")), 1e-9)
	assert.InDelta(t, 3030, testutil.ToFloat64(x.clusterFreq.WithLabelValues("P-Cluster")), 1e-9)
	assert.InDelta(t, 0.25, testutil.ToFloat64(x.coreActive.WithLabelValues("E-Cluster", "0")), 1e-9)
	assert.InDelta(t, 0.9, testutil.ToFloat64(x.coreActive.WithLabelValues("P-Cluster", "4")), 1e-9)

	assert.InDelta(t, 0.35, testutil.ToFloat64(x.gpuActive), 1e-9)
	assert.InDelta(t, 714, testutil.ToFloat64(x.gpuFreq), 1e-9)
	assert.InDelta(t, 0.1, testutil.ToFloat64(x.aneActive), 1e-9)

	assert.InDelta(t, 0.089, testutil.ToFloat64(x.power.WithLabelValues("cpu")), 1e-9)
	assert.InDelta(t, 0.0594301, testutil.ToFloat64(x.power.WithLabelValues("package")), 1e-9)
	assert.InDelta(t, float64(16<<30), testutil.ToFloat64(x.memory.WithLabelValues("ram_total")), 1)
	assert.InDelta(t, 1, testutil.ToFloat64(x.thermal), 1e-9)
}

func TestExporter_SkipsRepeatedSequence(t *testing.T) {
	x := NewExporter()
	x.Observe(testState(1, 1.0))
	x.Observe(testState(1, 99.0))

	assert.InDelta(t, 1.0, testutil.ToFloat64(x.power.WithLabelValues("package")), 1e-9)
}

func TestExporter_DropsStaleSeries(t *testing.T) {
	x := NewExporter()
	x.Observe(testState(1, 1.0))
	require.Equal(t, 2, testutil.CollectAndCount(x.clusterActive))
	require.Equal(t, 3, testutil.CollectAndCount(x.coreActive))

	// A later snapshot without the P cluster must not leave its old
	// series behind.
	st := testState(2, 1.0)
	st.Metrics.PClusters = nil
	x.Observe(st)

	assert.Equal(t, 1, testutil.CollectAndCount(x.clusterActive))
	assert.Equal(t, 2, testutil.CollectAndCount(x.coreActive))
}

func TestExporter_ObserveNilIsSafe(t *testing.T) {
	x := NewExporter()
	x.Observe(nil)
	assert.Equal(t, 0, testutil.CollectAndCount(x.clusterActive))
}

func TestExporter_HandlerServesTextFormat(t *testing.T) {
	x := NewExporter()
	x.Observe(testState(1, 2.5))

	rec := httptest.NewRecorder()
	x.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `soctop_power_watts{domain="package"} 2.5`)
	assert.Contains(t, body, `soctop_cluster_active_ratio{cluster="E-Cluster"} 0.5`)
	assert.Contains(t, body, "soctop_thermal_pressure_level 0")
	assert.Contains(t, body, "# HELP soctop_gpu_active_ratio")
}
