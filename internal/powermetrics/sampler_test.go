package powermetrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The lifecycle tests stand in /bin/cat and /bin/sleep for the real
// powermetrics binary: cat replays a recorded stream and exits, sleep
// is a child that never produces output.

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.plist")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestSampler(t *testing.T, cfg Config) *Sampler {
	t.Helper()
	s := New(cfg, zerolog.Nop())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestSampler_StreamsRecordsThenReportsExit(t *testing.T) {
	path := writeFixture(t, validDoc+"\n"+validDoc+"\n")
	s := newTestSampler(t, Config{Path: "/bin/cat", Args: []string{path}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))

	for i := 0; i < 2; i++ {
		rec, err := s.Next(ctx)
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, uint64(1003382750), rec.ElapsedNS)
	}

	// The stream is exhausted and the child is gone.
	_, err := s.Next(ctx)
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, ee.Code)
	assert.False(t, ee.NeedsRoot())
}

func TestSampler_DecodeErrorDoesNotEndStream(t *testing.T) {
	garbage := "<?xml version=\"1.0\"?>\n<plist>\n<broken\n</plist>"
	path := writeFixture(t, garbage+"\n"+validDoc+"\n")
	s := newTestSampler(t, Config{Path: "/bin/cat", Args: []string{path}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))

	_, err := s.Next(ctx)
	var de *DecodeError
	require.ErrorAs(t, err, &de)

	rec, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1003382750), rec.ElapsedNS)

	_, err = s.Next(ctx)
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 0, ee.Code)
}

func TestSampler_StallTimeout(t *testing.T) {
	s := newTestSampler(t, Config{
		Path:  "/bin/sleep",
		Args:  []string{"30"},
		Stall: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, ErrStalled)
}

func TestSampler_StopKillsAndReaps(t *testing.T) {
	s := newTestSampler(t, Config{Path: "/bin/sleep", Args: []string{"30"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, s.Stop())
		// A second Stop must not hang or panic.
		assert.NoError(t, s.Stop())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not reap the child in time")
	}

	// After Stop the exit state is visible to Next.
	_, err := s.Next(ctx)
	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.NotEqual(t, 0, ee.Code)
}

func TestSampler_StopBeforeStart(t *testing.T) {
	s := New(Config{Path: "/bin/cat"}, zerolog.Nop())
	assert.NoError(t, s.Stop())
}

func TestSampler_DoubleStartRejected(t *testing.T) {
	path := writeFixture(t, validDoc+"\n")
	s := newTestSampler(t, Config{Path: "/bin/cat", Args: []string{path}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx))
}

func TestSampler_StartMissingBinary(t *testing.T) {
	s := New(Config{Path: "/nonexistent/powermetrics"}, zerolog.Nop())

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSampler_NextHonorsContext(t *testing.T) {
	s := newTestSampler(t, Config{Path: "/bin/sleep", Args: []string{"30"}})

	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(startCtx))

	ctx, cancelNext := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelNext()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSampler_DefaultInvocation(t *testing.T) {
	s := New(Config{Interval: 500 * time.Millisecond}, zerolog.Nop())

	assert.Equal(t, "/usr/bin/powermetrics", s.path())
	assert.Equal(t, []string{
		"--samplers", "cpu_power,gpu_power,thermal",
		"-f", "plist",
		"-i", "500",
	}, s.args())
	assert.Equal(t, 2*time.Second, s.stallTimeout())

	slow := New(Config{Interval: 2 * time.Second}, zerolog.Nop())
	assert.Equal(t, 8*time.Second, slow.stallTimeout())
}
