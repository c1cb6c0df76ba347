// Package config loads the optional defaults file consumed by the chaperon
// CLI. Flags always win over file values; the file only moves common knobs
// (timeout, method, priorities, log format) out of every invocation.
package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration with yaml text parsing.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults is the file schema.
type Defaults struct {
	Timeout       Duration `yaml:"timeout"`
	Method        string   `yaml:"method"`
	CheckInterval Duration `yaml:"checkInterval"`
	Encoding      string   `yaml:"encoding"`
	Priority      string   `yaml:"priority"`
	IOPriority    string   `yaml:"ioPriority"`
	Heartbeat     Duration `yaml:"heartbeat"`
	Silent        bool     `yaml:"silent"`
	MetricsListen string   `yaml:"metricsListen"`
	Log           Log      `yaml:"log"`
}

// Log configures the CLI logger.
type Log struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}
