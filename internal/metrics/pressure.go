package metrics

// Pressure is the thermal pressure label reported by the OS.
type Pressure string

const (
	PressureNominal   Pressure = "Nominal"
	PressureModerate  Pressure = "Moderate"
	PressureHeavy     Pressure = "Heavy"
	PressureTrapping  Pressure = "Trapping"
	PressureSleeping  Pressure = "Sleeping"
	PressureUndefined Pressure = "Undefined"
)

// PressureFromLabel maps a raw label onto the known set; anything
// unrecognized becomes Undefined.
func PressureFromLabel(s string) Pressure {
	switch Pressure(s) {
	case PressureNominal, PressureModerate, PressureHeavy, PressureTrapping, PressureSleeping:
		return Pressure(s)
	default:
		return PressureUndefined
	}
}

// Level orders pressures by severity: 0 for Nominal up to 4 for
// Sleeping, -1 for Undefined. Used by the Prometheus exporter.
func (p Pressure) Level() int {
	switch p {
	case PressureNominal:
		return 0
	case PressureModerate:
		return 1
	case PressureHeavy:
		return 2
	case PressureTrapping:
		return 3
	case PressureSleeping:
		return 4
	default:
		return -1
	}
}
