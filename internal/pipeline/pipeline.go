// Package pipeline coordinates the sampling loop: it owns the child
// sampler through a factory, merges each raw sample with a host
// snapshot, maintains history, and publishes immutable snapshots for
// any number of consumers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/binsquare/soctop/internal/history"
	"github.com/binsquare/soctop/internal/metrics"
	"github.com/binsquare/soctop/internal/powermetrics"
	"github.com/binsquare/soctop/internal/soc"
	"github.com/binsquare/soctop/internal/sysmon"
)

const (
	// One automatic sampler replacement per run, never replenished.
	restartBudget = 1

	// This many decode failures in a row mean the stream is poisoned,
	// not merely glitched, and the sampler is treated as failed.
	maxDecodeStreak = 3

	defaultInterval    = time.Second
	defaultHistorySize = 128
)

// ErrAlreadyRunning is returned by Run when the pipeline has been
// started before. A pipeline runs once.
var ErrAlreadyRunning = errors.New("pipeline already running")

// RecordSource produces raw samples. One instance drives one child
// process; after a failure the coordinator builds a replacement
// through its factory.
type RecordSource interface {
	Start(ctx context.Context) error
	Next(ctx context.Context) (*powermetrics.Record, error)
	Stop() error
}

// SourceFactory builds a fresh RecordSource.
type SourceFactory func() RecordSource

// SnapshotSource produces host snapshots.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (sysmon.Snapshot, error)
}

// SocSource loads the static SoC description.
type SocSource interface {
	Load(ctx context.Context) (*soc.Info, error)
}

// Config sizes the pipeline.
type Config struct {
	// Interval between ticks. The sampler is asked for the same
	// period.
	Interval time.Duration

	// HistorySize is the per-series history capacity.
	HistorySize int
}

// Deps are the pipeline's collaborators.
type Deps struct {
	NewSource SourceFactory
	Monitor   SnapshotSource
	Soc       SocSource
}

// Pipeline is the coordinator. Construct with New, drive with Run,
// read through Latest/Updates/Phase from any goroutine.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger

	phase   atomic.Int32
	state   atomic.Pointer[State]
	socInfo atomic.Pointer[soc.Info]
	updates chan struct{}

	// Everything below belongs to the Run goroutine.
	store        *history.Store
	seq          uint64
	restartsLeft int
	decodeStreak int
}

// New returns an idle pipeline.
func New(cfg Config, deps Deps, log zerolog.Logger) *Pipeline {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	return &Pipeline{
		cfg:          cfg,
		deps:         deps,
		log:          log,
		updates:      make(chan struct{}, 1),
		store:        history.NewStore(cfg.HistorySize),
		restartsLeft: restartBudget,
	}
}

// Phase returns the current lifecycle phase.
func (p *Pipeline) Phase() Phase { return Phase(p.phase.Load()) }

// Latest returns the newest published snapshot, or nil before the
// first one.
func (p *Pipeline) Latest() *State { return p.state.Load() }

// Soc returns the SoC description once startup has loaded it, nil
// before.
func (p *Pipeline) Soc() *soc.Info { return p.socInfo.Load() }

// Updates signals each publication. The channel coalesces: a slow
// consumer sees one pending signal and reads the newest snapshot via
// Latest, skipping intermediates.
func (p *Pipeline) Updates() <-chan struct{} { return p.updates }

// Run drives the sampling loop until ctx is canceled or the sampler
// fails beyond repair. It blocks; readers use the accessor methods
// concurrently. On cancellation it stops the child, waits for it to be
// reaped and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseStarting)) {
		return ErrAlreadyRunning
	}

	info, err := p.deps.Soc.Load(ctx)
	if err != nil {
		p.phase.Store(int32(PhaseFailed))
		return fmt.Errorf("identify soc: %w", err)
	}
	p.socInfo.Store(info)
	p.log.Info().
		Str("brand", info.BrandName).
		Int("e_cores", info.EfficiencyCores).
		Int("p_cores", info.PerformanceCores).
		Int("gpu_cores", info.GPUCores).
		Msg("soc identified")

	src := p.deps.NewSource()
	if err := src.Start(ctx); err != nil {
		p.phase.Store(int32(PhaseFailed))
		return fmt.Errorf("start sampler: %w", err)
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return p.shutdown(src)
		case <-ticker.C:
			next, err := p.tick(ctx, src)
			if err != nil {
				return err
			}
			src = next
		}
	}
}

// tick runs one sampling round. It returns the source to use next
// round, which differs from src after an automatic restart.
func (p *Pipeline) tick(ctx context.Context, src RecordSource) (RecordSource, error) {
	local, err := p.deps.Monitor.Snapshot(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("host snapshot failed")
		local = sysmon.Snapshot{}
	}

	rec, err := src.Next(ctx)
	if err != nil {
		return p.handleSampleError(ctx, src, err)
	}
	p.decodeStreak = 0

	m := metrics.Merge(rec, local, p.socInfo.Load())
	p.store.Observe(m)
	p.publish(m)
	return src, nil
}

// handleSampleError sorts a failed Next into: drop the tick (isolated
// decode error), replace the child (first exit/stall/poisoned stream),
// or fail the pipeline for good.
func (p *Pipeline) handleSampleError(ctx context.Context, src RecordSource, err error) (RecordSource, error) {
	if ctx.Err() != nil {
		// Shutdown already in progress; the outer loop handles it.
		return src, nil
	}

	var de *powermetrics.DecodeError
	if errors.As(err, &de) {
		p.decodeStreak++
		p.log.Warn().Err(de).Int("streak", p.decodeStreak).Msg("sample dropped")
		if p.decodeStreak < maxDecodeStreak {
			return src, nil
		}
		p.decodeStreak = 0
		err = fmt.Errorf("%d consecutive decode failures: %w", maxDecodeStreak, de)
	}

	_ = src.Stop()

	if p.restartsLeft > 0 {
		p.restartsLeft--
		p.log.Warn().Err(err).Msg("sampler failed, restarting")
		next := p.deps.NewSource()
		serr := next.Start(ctx)
		if serr == nil {
			return next, nil
		}
		err = fmt.Errorf("restart sampler: %w", serr)
	}

	p.phase.Store(int32(PhaseFailed))
	p.log.Error().Err(err).Msg("sampler failed, giving up")
	return nil, err
}

func (p *Pipeline) shutdown(src RecordSource) error {
	p.phase.Store(int32(PhaseStopping))
	p.log.Info().Msg("stopping sampler")
	if err := src.Stop(); err != nil {
		p.log.Warn().Err(err).Msg("sampler stop failed")
	}
	p.phase.Store(int32(PhaseStopped))
	p.log.Info().Uint64("samples", p.seq).Msg("pipeline stopped")
	return nil
}

// publish swaps in a fresh immutable snapshot and pokes the update
// channel. Single writer; consumers read the pointer atomically and
// can never observe a half-written state.
func (p *Pipeline) publish(m *metrics.Metrics) {
	p.seq++
	st := &State{
		Seq:       p.seq,
		SampledAt: time.Now(),
		Soc:       p.socInfo.Load(),
		Metrics:   m,
		History:   p.store.Snapshot(),
	}
	p.state.Store(st)

	if p.phase.CompareAndSwap(int32(PhaseStarting), int32(PhaseRunning)) {
		p.log.Info().Msg("first sample published")
	}

	select {
	case p.updates <- struct{}{}:
	default:
	}
}
