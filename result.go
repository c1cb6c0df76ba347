package chaperon

import "time"

// Sentinel exit codes signal supervisory failures, distinct from any real
// child exit status. Non-negative codes are always the child's own.
const (
	ExitInvalidConfig = -250
	ExitCancelled     = -251
	ExitInterrupted   = -252
	ExitSpawnFailure  = -253
	ExitTimeout       = -254
	ExitUnknown       = -255
)

// Capture holds the text collected from one stream. The zero value reports
// that nothing was ever captured, which is distinct from a stream that
// produced an empty string.
type Capture struct {
	valid bool
	value string
}

func newCapture(s string) Capture {
	return Capture{valid: true, value: s}
}

// Ok reports whether any output was captured for the stream.
func (c Capture) Ok() bool { return c.valid }

// String returns the captured output, or the empty string when nothing was
// captured.
func (c Capture) String() string { return c.value }

// Result is the final outcome of a supervised run. It is constructed once at
// the end of the run and never mutated afterwards.
type Result struct {
	// ExitCode is the child's exit status, or one of the sentinel codes when
	// the supervisor terminated the run.
	ExitCode int

	// Output is the merged stdout+stderr capture. On supervisory failures it
	// carries the failure message with the best-effort partial output
	// attached.
	Output Capture

	// Stdout and Stderr are populated instead of Output when split streams
	// are enabled.
	Stdout Capture
	Stderr Capture

	// Duration is the wall-clock time between spawn attempt and completion.
	Duration time.Duration
}
