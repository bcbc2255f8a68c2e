// Package powermetrics runs the macOS powermetrics tool as a child
// process and decodes the plist sample documents it streams on stdout.
package powermetrics

// Record is one decoded sample covering a single measurement interval.
// Field names follow the keys powermetrics emits with the
// cpu_power,gpu_power,thermal samplers.
type Record struct {
	// Length of the measurement interval in nanoseconds.
	ElapsedNS uint64 `plist:"elapsed_ns"`

	Processor Processor `plist:"processor"`
	GPU       GPU       `plist:"gpu"`

	// One of Nominal, Moderate, Heavy, Trapping, Sleeping.
	ThermalPressure string `plist:"thermal_pressure"`
}

// Processor carries the CPU-complex counters: the cluster breakdown and
// the energy accumulated per domain over the interval.
type Processor struct {
	Clusters []Cluster `plist:"clusters"`

	// Energies in millijoules over the interval.
	CPUEnergyMJ uint64 `plist:"cpu_energy"`
	GPUEnergyMJ uint64 `plist:"gpu_energy"`
	ANEEnergyMJ uint64 `plist:"ane_energy"`

	// Whole-package power in milliwatts.
	CombinedPowerMW float64 `plist:"combined_power"`
}

// Cluster is one CPU cluster, e.g. "E-Cluster" on a single-die chip or
// "P0-Cluster", "P1-Cluster" on multi-die chips.
type Cluster struct {
	Name   string      `plist:"name"`
	FreqHz float64     `plist:"freq_hz"`
	DVFM   []DVFMState `plist:"dvfm_states"`
	CPUs   []CPU       `plist:"cpus"`
}

// CPU is one core within a cluster. IDs are the OS CPU numbers.
type CPU struct {
	ID        int         `plist:"cpu"`
	FreqHz    float64     `plist:"freq_hz"`
	IdleRatio float64     `plist:"idle_ratio"`
	DVFM      []DVFMState `plist:"dvfm_states"`
}

// GPU carries the GPU counters.
type GPU struct {
	// powermetrics reports this under the key freq_hz but the value is
	// already in MHz.
	FreqMHz   float64     `plist:"freq_hz"`
	IdleRatio float64     `plist:"idle_ratio"`
	DVFM      []DVFMState `plist:"dvfm_states"`
}

// DVFMState is one voltage/frequency step with the share of the
// interval spent in it.
type DVFMState struct {
	FreqMHz     uint16  `plist:"freq"`
	ActiveRatio float64 `plist:"used_ratio"`
}
