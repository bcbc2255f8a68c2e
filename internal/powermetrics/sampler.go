package powermetrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultPath     = "/usr/bin/powermetrics"
	defaultInterval = time.Second

	// Only the tail of stderr is kept for diagnostics.
	maxStderrBytes = 2048
)

// Config configures a Sampler.
type Config struct {
	// Path of the binary to spawn. Defaults to /usr/bin/powermetrics.
	Path string

	// Args overrides the full argument list. When nil the standard
	// cpu_power,gpu_power,thermal plist invocation is built from
	// Interval.
	Args []string

	// Interval is the sampling period handed to the tool.
	Interval time.Duration

	// Stall is the longest Next waits for a sample before reporting
	// ErrStalled. Defaults to 4x Interval with a 2s floor.
	Stall time.Duration
}

type result struct {
	rec *Record
	err error
}

// Sampler owns one powermetrics child process: it spawns it, decodes
// its stdout on a reader goroutine and reaps it on Stop. A Sampler is
// single-use; a replacement child needs a new Sampler.
type Sampler struct {
	cfg Config
	log zerolog.Logger

	cmd     *exec.Cmd
	stderr  strings.Builder
	results chan result
	quit    chan struct{}
	done    chan struct{}
	exitErr *ExitError

	stopOnce sync.Once
}

// New returns an unstarted sampler.
func New(cfg Config, log zerolog.Logger) *Sampler {
	return &Sampler{
		cfg:     cfg,
		log:     log,
		results: make(chan result, 8),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *Sampler) path() string {
	if s.cfg.Path != "" {
		return s.cfg.Path
	}
	return defaultPath
}

func (s *Sampler) interval() time.Duration {
	if s.cfg.Interval > 0 {
		return s.cfg.Interval
	}
	return defaultInterval
}

func (s *Sampler) args() []string {
	if len(s.cfg.Args) > 0 {
		return s.cfg.Args
	}
	ms := strconv.FormatInt(s.interval().Milliseconds(), 10)
	return []string{
		"--samplers", "cpu_power,gpu_power,thermal",
		"-f", "plist",
		"-i", ms,
	}
}

func (s *Sampler) stallTimeout() time.Duration {
	if s.cfg.Stall > 0 {
		return s.cfg.Stall
	}
	stall := 4 * s.interval()
	if stall < 2*time.Second {
		stall = 2 * time.Second
	}
	return stall
}

// Start spawns the child and begins decoding its output. It returns
// once the process is running; samples arrive through Next.
func (s *Sampler) Start(ctx context.Context) error {
	if s.cmd != nil {
		return errors.New("sampler already started")
	}

	cmd := exec.CommandContext(ctx, s.path(), s.args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("pipe stdout: %w", err)
	}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("powermetrics not found at %s: %w", s.path(), err)
		}
		return fmt.Errorf("start %s: %w", s.path(), err)
	}
	s.cmd = cmd
	s.log.Info().Str("path", s.path()).Strs("args", s.args()).Int("pid", cmd.Process.Pid).
		Msg("sampler started")

	go s.read(stdout)
	return nil
}

// read drains the child's stdout until it closes, forwarding decoded
// samples and decode errors, then reaps the process exactly once.
func (s *Sampler) read(stdout io.Reader) {
	dec := NewDecoder(stdout)
	for {
		rec, err := dec.Next()
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				s.deliver(result{err: de})
				continue
			}
			if err != io.EOF {
				s.log.Warn().Err(err).Msg("sample stream read failed")
			}
			break
		}
		s.deliver(result{rec: rec})
	}

	code := 0
	if err := s.cmd.Wait(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		} else {
			code = -1
		}
	}
	s.exitErr = &ExitError{Code: code, Stderr: stderrTail(s.stderr.String())}
	s.log.Info().Int("code", code).Msg("sampler exited")
	close(s.done)
}

// deliver hands a result to Next, dropping it when Stop has been
// called and nobody is listening anymore.
func (s *Sampler) deliver(r result) {
	select {
	case s.results <- r:
	case <-s.quit:
	}
}

// Next returns the next sample. It returns a *DecodeError for a
// damaged document (the stream continues), a *ExitError once the child
// has terminated, or ErrStalled when the child goes quiet for longer
// than the stall timeout.
func (s *Sampler) Next(ctx context.Context) (*Record, error) {
	// Drain buffered results before considering the exit state, so
	// samples decoded just before death are not lost.
	select {
	case r := <-s.results:
		return r.rec, r.err
	default:
	}

	timer := time.NewTimer(s.stallTimeout())
	defer timer.Stop()

	select {
	case r := <-s.results:
		return r.rec, r.err
	case <-s.done:
		return nil, s.exitErr
	case <-timer.C:
		return nil, ErrStalled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop kills the child if it is still running and blocks until it has
// been reaped. Safe to call more than once and after natural exit.
func (s *Sampler) Stop() error {
	if s.cmd == nil {
		return nil
	}
	s.stopOnce.Do(func() {
		close(s.quit)
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.log.Debug().Err(err).Msg("kill powermetrics")
		}
	})
	<-s.done
	return nil
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrBytes {
		s = s[len(s)-maxStderrBytes:]
	}
	return s
}
