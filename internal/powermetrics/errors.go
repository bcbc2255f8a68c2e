package powermetrics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStalled reports that the child process is alive but has not
// produced a sample within the stall timeout.
var ErrStalled = errors.New("powermetrics stalled: no sample within timeout")

// DecodeError reports a sample document that could not be decoded. The
// stream itself is still usable: later documents may decode fine.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode sample: %s: %v", e.Reason, e.Err)
	}
	return "decode sample: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExitError reports that the child process terminated, voluntarily or
// not. Stderr carries the tail of whatever the tool printed before
// dying, which is where powermetrics explains itself.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("powermetrics exited with code %d: %s", e.Code, e.Stderr)
	}
	return fmt.Sprintf("powermetrics exited with code %d", e.Code)
}

// NeedsRoot reports whether stderr indicates the tool refused to run
// without privileges.
func (e *ExitError) NeedsRoot() bool {
	s := strings.ToLower(e.Stderr)
	return strings.Contains(s, "superuser") || strings.Contains(s, "root")
}
