// Package export publishes pipeline snapshots to external consumers:
// newline-delimited JSON records on a writer, and Prometheus gauges.
package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/binsquare/soctop/internal/metrics"
	"github.com/binsquare/soctop/internal/pipeline"
	"github.com/binsquare/soctop/internal/soc"
)

const (
	writeBufferSize = 64 * 1024
	maxLineBytes    = 10 * 1024 * 1024
)

// Record is one line of the JSON stream.
type Record struct {
	Timestamp time.Time        `json:"timestamp"`
	Soc       *soc.Info        `json:"soc"`
	Metrics   *metrics.Metrics `json:"metrics"`
}

// StateSource is the part of the pipeline an emitter consumes.
type StateSource interface {
	Latest() *pipeline.State
	Updates() <-chan struct{}
}

// Emitter writes one JSON record per published snapshot, in sequence
// order, flushing after each line so a live reader never waits on a
// partial buffer.
type Emitter struct {
	w    *bufio.Writer
	enc  *json.Encoder
	last uint64
}

// NewEmitter returns an emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	bw := bufio.NewWriterSize(w, writeBufferSize)
	return &Emitter{w: bw, enc: json.NewEncoder(bw)}
}

// Emit writes st as one line. Nil states and sequence numbers already
// written are skipped, so callers can hand over every wakeup
// unconditionally.
func (e *Emitter) Emit(st *pipeline.State) error {
	if st == nil || st.Seq == e.last {
		return nil
	}
	e.last = st.Seq
	if err := e.enc.Encode(Record{
		Timestamp: st.SampledAt,
		Soc:       st.Soc,
		Metrics:   st.Metrics,
	}); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return e.w.Flush()
}

// Run emits each new snapshot until ctx is canceled, then writes any
// snapshot published since the last emit and returns.
func (e *Emitter) Run(ctx context.Context, src StateSource) error {
	for {
		select {
		case <-ctx.Done():
			return e.Emit(src.Latest())
		case <-src.Updates():
			if err := e.Emit(src.Latest()); err != nil {
				return err
			}
		}
	}
}

// Close flushes pending output.
func (e *Emitter) Close() error {
	return e.w.Flush()
}

// ReadRecords loads a stream file written by Emit. Blank lines are
// skipped; a malformed line fails the whole read, pointing at the
// line.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, writeBufferSize), maxLineBytes)

	var records []Record
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}
