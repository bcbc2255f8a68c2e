package powermetrics

import (
	"bufio"
	"io"
	"strings"

	"howett.net/plist"
)

// A plist document from powermetrics can run to ~2000 lines depending
// on the chip, each line well under this cap.
const maxLineBytes = 1024 * 1024

// Decoder reassembles plist documents from the powermetrics stdout
// stream and unmarshals them into Records. The stream is not valid XML
// as produced: the first line of a document may carry a leading NUL
// byte, and some OS builds emit a dangling idle_ratio key line with no
// value near the end of a document. Both are repaired before decoding.
type Decoder struct {
	sc    *bufio.Scanner
	lines []string
}

// NewDecoder returns a decoder reading line-wise from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Decoder{sc: sc}
}

// Next returns the next decoded sample. A *DecodeError means this
// document was damaged and the caller may keep reading; io.EOF means
// the stream ended.
func (d *Decoder) Next() (*Record, error) {
	for d.sc.Scan() {
		line := strings.TrimLeft(d.sc.Text(), "\x00")
		if strings.HasPrefix(line, "<?xml") && len(d.lines) > 0 {
			// A new document header arrived while the previous
			// document was still open: the previous one was truncated.
			// Drop it and start over from this header.
			d.lines = append(d.lines[:0], line)
			return nil, &DecodeError{Reason: "truncated document"}
		}
		d.lines = append(d.lines, line)
		if line != "</plist>" {
			continue
		}
		doc := finalize(d.lines)
		d.lines = d.lines[:0]
		var rec Record
		if _, err := plist.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, &DecodeError{Reason: "unmarshal document", Err: err}
		}
		return &rec, nil
	}
	if err := d.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// finalize repairs and joins a complete document. The damaged
// idle_ratio key, when present, sits a handful of lines before the
// closing tags, so only the last 10 lines are inspected.
func finalize(lines []string) string {
	lo := len(lines) - 10
	if lo < 0 {
		lo = 0
	}
	for i := len(lines) - 1; i >= lo; i-- {
		if strings.HasPrefix(lines[i], "<key>idle_ratio</key>") {
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return strings.Join(lines, "\n")
}
