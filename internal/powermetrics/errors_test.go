package powermetrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitError_NeedsRoot(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		want   bool
	}{
		{"superuser hint", "powermetrics must be invoked as the superuser", true},
		{"root hint", "Error: this tool requires root privileges", true},
		{"case insensitive", "RooT required", true},
		{"unrelated", "unrecognized sampler: foo", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ee := &ExitError{Code: 1, Stderr: tc.stderr}
			assert.Equal(t, tc.want, ee.NeedsRoot())
		})
	}
}

func TestExitError_Message(t *testing.T) {
	ee := &ExitError{Code: 137, Stderr: "killed"}
	assert.Contains(t, ee.Error(), "137")
	assert.Contains(t, ee.Error(), "killed")

	clean := &ExitError{Code: 0}
	assert.Contains(t, clean.Error(), "0")
}

func TestDecodeError_Unwrap(t *testing.T) {
	inner := errors.New("bad xml")
	de := &DecodeError{Reason: "unmarshal document", Err: inner}

	assert.ErrorIs(t, de, inner)
	assert.Contains(t, de.Error(), "unmarshal document")

	bare := &DecodeError{Reason: "truncated document"}
	assert.Nil(t, errors.Unwrap(bare))
	assert.Contains(t, bare.Error(), "truncated document")
}
