package pipeline

import (
	"time"

	"github.com/binsquare/soctop/internal/history"
	"github.com/binsquare/soctop/internal/metrics"
	"github.com/binsquare/soctop/internal/soc"
)

// Phase is the coordinator's lifecycle position. Failed is terminal;
// Stopped is reached only through an orderly shutdown.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseStopping
	PhaseStopped
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseStopped:
		return "stopped"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is one published snapshot. It is immutable: every field is
// either a value, a pointer to data that is never written again, or a
// history view that later pushes cannot disturb. Consumers on any
// goroutine may hold a State indefinitely.
type State struct {
	// Seq increases by one per publication, starting at 1.
	Seq uint64

	SampledAt time.Time
	Soc       *soc.Info
	Metrics   *metrics.Metrics
	History   map[string]history.View[float64]
}
