// Package config holds the runtime settings shared by the soctop
// commands.
package config

import (
	"fmt"
	"time"
)

const (
	// MinSampleRate is the fastest the sampler is allowed to run.
	// Faster rates are raised, not rejected.
	MinSampleRate = 100 * time.Millisecond

	DefaultSampleRate  = time.Second
	DefaultHistorySize = 128
	DefaultListenAddr  = ":2333"
	DefaultAccentColor = "cyan"
)

// Config is the resolved configuration for one command invocation.
type Config struct {
	SampleRate  time.Duration
	HistorySize int
	JSON        bool
	AccentColor string
	ListenAddr  string

	Debug   bool
	LogFile string
}

// Default returns the configuration the flags start from.
func Default() Config {
	return Config{
		SampleRate:  DefaultSampleRate,
		HistorySize: DefaultHistorySize,
		AccentColor: DefaultAccentColor,
		ListenAddr:  DefaultListenAddr,
	}
}

// Validate normalizes the configuration in place. Out-of-range values
// that have a sane nearest substitute are adjusted and reported as
// warnings; only contradictions fail.
func (c *Config) Validate() ([]string, error) {
	var warnings []string

	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.SampleRate < MinSampleRate {
		warnings = append(warnings, fmt.Sprintf(
			"sample rate %s is below the %s minimum, using %s",
			c.SampleRate, MinSampleRate, MinSampleRate))
		c.SampleRate = MinSampleRate
	}

	if c.HistorySize == 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.HistorySize < 1 {
		return warnings, fmt.Errorf("history size must be at least 1, got %d", c.HistorySize)
	}

	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	return warnings, nil
}
