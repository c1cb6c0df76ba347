// Package watchdog enforces wall-clock timeouts and cancellation predicates
// for a supervised process.
//
// Two shapes are provided to match the two collection strategies: Start runs
// a background goroutine for collectors that may be blocked in a long read,
// and Check is the inline variant called on every iteration of a polling
// loop. Both terminate the process tree before the collector ever observes
// the triggered outcome.
package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Outcome is the terminal state recorded for a run.
type Outcome int

const (
	// None means the watchdog never triggered.
	None Outcome = iota
	// Timeout means the wall-clock budget expired.
	Timeout
	// Cancelled means the cancellation predicate returned true.
	Cancelled
	// Interrupted means the caller's context was cancelled.
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	case Interrupted:
		return "interrupted"
	default:
		return "none"
	}
}

// Config carries the per-run watchdog inputs. A fresh Config is built for
// every run; nothing survives across runs.
type Config struct {
	Start    time.Time
	Timeout  time.Duration // zero or negative disables the deadline
	StopOn   func() bool   // optional cancellation predicate
	Interval time.Duration // poll cadence
	Kill     func()        // terminates the process tree
	Log      *slog.Logger
}

func (c Config) interval() time.Duration {
	if c.Interval <= 0 {
		return 50 * time.Millisecond
	}
	return c.Interval
}

// evaluate reports the outcome the current clock and predicate demand,
// without side effects.
func (c Config) evaluate() Outcome {
	if c.Timeout > 0 && time.Since(c.Start) > c.Timeout {
		return Timeout
	}
	if c.StopOn != nil && c.StopOn() {
		return Cancelled
	}
	return None
}

// Watchdog is the background variant used by the monitor strategy, whose
// main loop may be blocked in a long read and cannot check inline.
type Watchdog struct {
	cfg  Config
	stop chan struct{}
	done chan struct{}
	once sync.Once

	// outcome is written once by the background goroutine and read only
	// after done is closed; the join in Stop is the synchronization point.
	outcome Outcome
}

// Start launches the background watcher.
func Start(cfg Config) *Watchdog {
	w := &Watchdog{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Watchdog) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.cfg.interval())
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if out := w.cfg.evaluate(); out != None {
				w.cfg.Kill()
				w.outcome = out
				return
			}
		}
	}
}

// Stop halts the watcher, waits for its goroutine to finish and returns the
// recorded outcome. The join happens before the outcome is read, so no lock
// is needed around the field.
func (w *Watchdog) Stop() Outcome {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	return w.outcome
}

// Check is the inline variant used by the poller strategy.
type Check struct {
	cfg   Config
	ctx   context.Context
	fired Outcome
}

// NewCheck builds an inline check bound to the caller's context.
func NewCheck(ctx context.Context, cfg Config) *Check {
	return &Check{cfg: cfg, ctx: ctx}
}

// Do evaluates the context, deadline and predicate. On the first trigger it
// terminates the process tree and latches the outcome; later calls return
// the latched value without signalling again.
func (c *Check) Do() Outcome {
	if c.fired != None {
		return c.fired
	}
	out := None
	if c.ctx.Err() != nil {
		out = Interrupted
	} else {
		out = c.cfg.evaluate()
	}
	if out != None {
		c.cfg.Kill()
		c.fired = out
	}
	return out
}

// Fired returns the outcome latched by an earlier trigger, or None when the
// check never fired. It never evaluates the clock or the predicate.
func (c *Check) Fired() Outcome { return c.fired }

// Heartbeat emits an informational log line every interval while the child
// runs. Purely observational; it never affects control flow.
func Heartbeat(log *slog.Logger, interval time.Duration, command string, start time.Time) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				log.Info("command still running",
					"command", command,
					"elapsed", time.Since(start).Round(time.Second))
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(stopCh) })
		<-done
	}
}
