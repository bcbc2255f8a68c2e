package export

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/binsquare/soctop/internal/pipeline"
)

// Exporter mirrors the latest snapshot into Prometheus gauges on a
// dedicated registry.
type Exporter struct {
	reg *prometheus.Registry

	clusterActive *prometheus.GaugeVec
	clusterFreq   *prometheus.GaugeVec
	coreActive    *prometheus.GaugeVec
	gpuActive     prometheus.Gauge
	gpuFreq       prometheus.Gauge
	aneActive     prometheus.Gauge
	power         *prometheus.GaugeVec
	memory        *prometheus.GaugeVec
	thermal       prometheus.Gauge

	last uint64
}

// NewExporter builds the gauge set and registers it.
func NewExporter() *Exporter {
	x := &Exporter{
		reg: prometheus.NewRegistry(),
		clusterActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soctop_cluster_active_ratio",
			Help: "Mean active ratio of a CPU cluster's cores, 0 to 1.",
		}, []string{"cluster"}),
		clusterFreq: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soctop_cluster_frequency_mhz",
			Help: "Average frequency of a CPU cluster in MHz.",
		}, []string{"cluster"}),
		coreActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soctop_core_active_ratio",
			Help: "Active ratio of a single core, 0 to 1.",
		}, []string{"cluster", "core"}),
		gpuActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soctop_gpu_active_ratio",
			Help: "GPU active ratio, 0 to 1.",
		}),
		gpuFreq: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soctop_gpu_frequency_mhz",
			Help: "Average GPU frequency in MHz.",
		}),
		aneActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soctop_ane_active_ratio",
			Help: "Apple Neural Engine utilization, 0 to 1.",
		}),
		power: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soctop_power_watts",
			Help: "Power draw per domain in watts.",
		}, []string{"domain"}),
		memory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soctop_memory_bytes",
			Help: "Memory occupancy in bytes.",
		}, []string{"kind"}),
		thermal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "soctop_thermal_pressure_level",
			Help: "Thermal pressure severity: 0 Nominal through 4 Sleeping, -1 unknown.",
		}),
	}

	x.reg.MustRegister(
		x.clusterActive,
		x.clusterFreq,
		x.coreActive,
		x.gpuActive,
		x.gpuFreq,
		x.aneActive,
		x.power,
		x.memory,
		x.thermal,
	)
	return x
}

// Observe sets every gauge from st. Snapshots already observed are
// skipped.
func (x *Exporter) Observe(st *pipeline.State) {
	if st == nil || st.Seq == x.last {
		return
	}
	x.last = st.Seq
	m := st.Metrics

	x.clusterActive.Reset()
	x.clusterFreq.Reset()
	x.coreActive.Reset()
	for _, c := range m.Clusters() {
		x.clusterActive.WithLabelValues(c.Name).Set(c.ActiveRatio())
		x.clusterFreq.WithLabelValues(c.Name).Set(c.FreqMHz)
		for _, core := range c.Cores {
			x.coreActive.WithLabelValues(c.Name, strconv.Itoa(core.ID)).Set(core.ActiveRatio)
		}
	}

	x.gpuActive.Set(m.GPU.ActiveRatio)
	x.gpuFreq.Set(m.GPU.FreqMHz)
	x.aneActive.Set(m.ANEActiveRatio)

	x.power.WithLabelValues("cpu").Set(m.Consumption.CPUW)
	x.power.WithLabelValues("gpu").Set(m.Consumption.GPUW)
	x.power.WithLabelValues("ane").Set(m.Consumption.ANEW)
	x.power.WithLabelValues("package").Set(m.Consumption.PackageW)

	x.memory.WithLabelValues("ram_used").Set(float64(m.Memory.RAMUsed))
	x.memory.WithLabelValues("ram_total").Set(float64(m.Memory.RAMTotal))
	x.memory.WithLabelValues("swap_used").Set(float64(m.Memory.SwapUsed))
	x.memory.WithLabelValues("swap_total").Set(float64(m.Memory.SwapTotal))

	x.thermal.Set(float64(m.ThermalPressure.Level()))
}

// Handler serves the registry in the Prometheus text format.
func (x *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(x.reg, promhttp.HandlerOpts{})
}
