package chaperon

import (
	"context"
	"time"

	"github.com/chaperon-run/chaperon/internal/watchdog"
)

// collectMonitor accumulates the combined output through dedicated readers
// while the main loop polls for process exit on the check interval. The
// loop itself may not observe a timeout promptly (the child can hold its
// pipes open indefinitely), so timeout and cancellation are enforced by a
// background watchdog that terminates the tree out of band.
func (r *runner) collectMonitor(ctx context.Context, waitCh <-chan error) (int, watchdog.Outcome) {
	o := r.opts
	wd := watchdog.Start(watchdog.Config{
		Start:    r.start,
		Timeout:  o.Timeout,
		StopOn:   o.StopOn,
		Interval: o.CheckInterval,
		Kill:     r.killTree,
		Log:      r.log,
	})

	var waitErr error
	interrupted := false
	done := ctx.Done()
	for running := true; running; {
		select {
		case waitErr = <-waitCh:
			running = false
		case <-done:
			interrupted = true
			done = nil
			r.killTree()
		case <-time.After(o.CheckInterval):
		}
	}

	// The outcome flag is only read after the watchdog goroutine has been
	// joined; Stop is that handshake.
	outcome := wd.Stop()
	if outcome == watchdog.None && interrupted {
		outcome = watchdog.Interrupted
	}

	r.drainMonitor()
	return r.exitCodeFromWait(waitErr), outcome
}

// drainMonitor performs the final read: output produced between the last
// read and process exit is still sitting in the pipes, and the readers need
// a bounded window to deliver it. A reader that never reaches EOF (a
// backgrounded descendant can inherit the pipe and hold it open) is
// abandoned, but whatever it accumulated is still captured. Decoding
// happens once, here.
func (r *runner) drainMonitor() {
	for _, pr := range r.readers {
		if !pr.join(finalDrainTimeout) {
			r.log.Warn("output pipe still open after exit, a descendant may be holding it",
				"stream", pr.stream.name)
		}
		if pr.stream.buf != nil {
			_ = pr.stream.buf.Write(r.decode(pr.snapshot()))
		}
	}
}
