package config

import (
	"fmt"

	"github.com/chaperon-run/chaperon/internal/priority"
)

// Validate checks every enum field against its known values.
func (d *Defaults) Validate() error {
	switch d.Method {
	case "", "auto", "monitor", "poller":
	default:
		return fmt.Errorf("method: unknown value %q (want auto, monitor or poller)", d.Method)
	}

	if !priority.Valid(priority.Class(d.Priority)) {
		return fmt.Errorf("priority: unknown value %q", d.Priority)
	}
	if !priority.ValidIO(priority.IOClass(d.IOPriority)) {
		return fmt.Errorf("ioPriority: unknown value %q", d.IOPriority)
	}

	switch d.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown value %q (want text or json)", d.Log.Format)
	}
	switch d.Log.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown value %q", d.Log.Level)
	}

	if d.CheckInterval.Duration < 0 {
		return fmt.Errorf("checkInterval: must not be negative")
	}
	if d.Timeout.Duration < 0 {
		return fmt.Errorf("timeout: must not be negative")
	}
	return nil
}
