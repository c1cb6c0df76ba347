package chaperon

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/chaperon-run/chaperon/internal/logging"
)

// Method selects the output-collection strategy.
type Method int

const (
	// MethodAuto picks MethodPoller when a destination requires per-chunk
	// fan-out (callback, queue, live echo) and MethodMonitor otherwise.
	MethodAuto Method = iota
	// MethodMonitor accumulates the combined output through a single blocking
	// read, with a background watchdog enforcing timeout and cancellation.
	MethodMonitor
	// MethodPoller runs one reader per stream and drains both through a
	// bounded-wait scheduling loop, enabling multi-destination fan-out.
	MethodPoller
)

func (m Method) String() string {
	switch m {
	case MethodMonitor:
		return "monitor"
	case MethodPoller:
		return "poller"
	default:
		return "auto"
	}
}

// Priority names a process scheduling priority hint.
type Priority string

const (
	PriorityVeryLow  Priority = "verylow"
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityRealtime Priority = "rt"
)

// IOPriority names an IO scheduling priority hint.
type IOPriority string

const (
	IOPriorityLow    IOPriority = "low"
	IOPriorityNormal IOPriority = "normal"
	IOPriorityHigh   IOPriority = "high"
)

type destKind int

const (
	destCapture destKind = iota
	destDiscard
	destFile
	destCallback
	destQueue
	destInherit
)

// Destination describes where a stream's output goes. The zero value
// captures the stream in memory. Destinations are resolved once during
// configuration validation, before the child is spawned.
type Destination struct {
	kind destKind
	path string
	fn   func(string)
	ch   chan string
}

// Discard drops the stream entirely; the result reports no output for it.
func Discard() Destination { return Destination{kind: destDiscard} }

// ToFile forwards the stream to path, opened in binary write mode for the
// duration of the run. On supervisory failures the failure message is
// appended before the file is closed.
func ToFile(path string) Destination { return Destination{kind: destFile, path: path} }

// ToCallback invokes fn with every decoded chunk. Requires the poller
// strategy.
func ToCallback(fn func(string)) Destination { return Destination{kind: destCallback, fn: fn} }

// ToQueue sends every decoded chunk to ch. The channel is closed when the
// run ends unless Options.NoCloseQueues is set. Requires the poller
// strategy.
func ToQueue(ch chan string) Destination { return Destination{kind: destQueue, ch: ch} }

// Inherit echoes the stream to the parent's own stdout or stderr.
func Inherit() Destination { return Destination{kind: destInherit} }

const defaultCheckInterval = 50 * time.Millisecond

// Options configures a single run. The supervisor snapshots it at the start
// of Run and treats it as read-only for the duration of the run.
type Options struct {
	// ValidExitCodes lists child exit codes that are logged as success in
	// addition to zero. AllExitCodesValid treats every child code as valid.
	// Neither affects the returned exit code.
	ValidExitCodes    []int
	AllExitCodesValid bool

	// Timeout is the wall-clock budget for the child; zero or negative means
	// no timeout.
	Timeout time.Duration

	// Shell wraps the command in the platform shell.
	Shell bool

	// Encoding names the text encoding of the child's output (IANA names,
	// e.g. "utf-8", "cp437"). Empty selects the platform default; "binary"
	// disables decoding and returns the raw bytes.
	Encoding string

	// Stdin, when set, is connected to the child's standard input.
	Stdin io.Reader

	// Stdout and Stderr select the destination for each stream. With the
	// zero values and SplitStreams disabled, stderr is merged into stdout
	// and both are captured together.
	Stdout Destination
	Stderr Destination

	// WindowsNoWindow hides the console window of the child on Windows.
	WindowsNoWindow bool

	// LiveOutput echoes output to the parent's console while still applying
	// the configured destinations. Forces the poller strategy.
	LiveOutput bool

	// Method selects the collection strategy; MethodAuto derives it from the
	// destinations.
	Method Method

	// CheckInterval bounds every wait in the collection loops and therefore
	// the worst-case latency to observe a timeout or cancellation. Defaults
	// to 50ms.
	CheckInterval time.Duration

	// StopOn is polled between reads; when it returns true the process tree
	// is terminated and the run ends with ExitCancelled.
	StopOn func() bool

	// OnExit is invoked with the final result just before Run returns.
	OnExit func(Result)

	// ProcessCallback receives the live command immediately after spawn, for
	// test and observation hooks only. It must not retain the handle.
	ProcessCallback func(*exec.Cmd)

	// SplitStreams keeps stdout and stderr in independent captures instead
	// of merging stderr into stdout.
	SplitStreams bool

	// Silent suppresses log emission; it never alters the exit-code
	// contract.
	Silent bool

	// Priority and IOPriority are best-effort scheduling hints applied to
	// the live child. Permission failures are logged, never escalated.
	Priority   Priority
	IOPriority IOPriority

	// Heartbeat emits an informational log line at this interval while the
	// child runs. Zero disables it.
	Heartbeat time.Duration

	// NoCloseQueues leaves queue channels open when the run ends, for
	// long-lived consumers shared across runs.
	NoCloseQueues bool

	// Dir is the child's working directory; Env is appended to the parent
	// environment.
	Dir string
	Env []string

	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) withDefaults() *Options {
	var c Options
	if o != nil {
		c = *o
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = defaultCheckInterval
	}
	return &c
}

func (o *Options) runLogger() *slog.Logger {
	if o.Silent {
		return logging.Discard()
	}
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (d Destination) needsPoller() bool {
	return d.kind == destCallback || d.kind == destQueue
}

// resolveMethod validates destination/strategy compatibility and returns the
// effective collection strategy.
func (o *Options) resolveMethod() (Method, error) {
	fanOut := o.Stdout.needsPoller() || o.Stderr.needsPoller() || o.LiveOutput
	switch o.Method {
	case MethodMonitor:
		if fanOut {
			return 0, fmt.Errorf("callback, queue and live destinations require the poller method")
		}
		return MethodMonitor, nil
	case MethodPoller:
		return MethodPoller, nil
	case MethodAuto:
		if fanOut {
			return MethodPoller, nil
		}
		return MethodMonitor, nil
	default:
		return 0, fmt.Errorf("unknown collection method %d", int(o.Method))
	}
}

func (o *Options) validExit(code int) bool {
	if o.AllExitCodesValid {
		return true
	}
	if code == 0 {
		return true
	}
	for _, c := range o.ValidExitCodes {
		if code == c {
			return true
		}
	}
	return false
}
