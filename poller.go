package chaperon

import (
	"context"
	"time"

	"github.com/chaperon-run/chaperon/internal/metrics"
	"github.com/chaperon-run/chaperon/internal/watchdog"
)

// collectPoller drains the per-stream reader channels through a single
// scheduling loop with bounded waits, dispatching every chunk to the
// configured sinks and applying the inline watchdog check on each
// iteration. It is the only strategy that supports callback and queue
// fan-out and live echo.
func (r *runner) collectPoller(ctx context.Context, waitCh <-chan error) (int, watchdog.Outcome) {
	o := r.opts
	check := watchdog.NewCheck(ctx, watchdog.Config{
		Start:   r.start,
		Timeout: o.Timeout,
		StopOn:  o.StopOn,
		Kill:    r.killTree,
		Log:     r.log,
	})

	var outCh, errCh chan []byte
	var outStream, errStream *stream
	for _, pr := range r.readers {
		if pr.stream == r.stdout {
			outCh, outStream = pr.ch, pr.stream
		} else {
			errCh, errStream = pr.ch, pr.stream
		}
	}

	for outCh != nil || errCh != nil {
		select {
		case chunk, ok := <-outCh:
			if !ok {
				outCh = nil
			} else {
				r.dispatchChunk(outStream, chunk)
			}
		case chunk, ok := <-errCh:
			if !ok {
				errCh = nil
			} else {
				r.dispatchChunk(errStream, chunk)
			}
		case <-time.After(o.CheckInterval):
		}
		if out := check.Do(); out != watchdog.None {
			r.drainPoller(outCh, errCh, outStream, errStream)
			r.reap(waitCh)
			return 0, out
		}
	}

	// Both streams have delivered their end marker, but a closed pipe does
	// not imply the process has exited. Keep applying the inline check
	// while waiting for the status.
	for {
		select {
		case waitErr := <-waitCh:
			// Final check of the exit-vs-timeout race: once the exit status
			// has been observed, a deadline lapsing in the same interval no
			// longer reclassifies the run; only a watchdog that already
			// fired (and killed the tree) does.
			return r.exitCodeFromWait(waitErr), check.Fired()
		case <-time.After(o.CheckInterval):
			if out := check.Do(); out != watchdog.None {
				r.reap(waitCh)
				return 0, out
			}
		}
	}
}

func (r *runner) dispatchChunk(s *stream, chunk []byte) {
	metrics.AddOutputBytes(s.name, len(chunk))
	s.dispatch(r.decode(chunk))
}

// drainPoller collects whatever the readers still hold after the tree has
// been killed, so the abort path preserves best-effort output. Bounded; a
// reader that never reaches EOF is abandoned.
func (r *runner) drainPoller(outCh, errCh chan []byte, outStream, errStream *stream) {
	deadline := time.After(finalDrainTimeout)
	for outCh != nil || errCh != nil {
		select {
		case chunk, ok := <-outCh:
			if !ok {
				outCh = nil
			} else {
				r.dispatchChunk(outStream, chunk)
			}
		case chunk, ok := <-errCh:
			if !ok {
				errCh = nil
			} else {
				r.dispatchChunk(errStream, chunk)
			}
		case <-deadline:
			return
		}
	}
}

// reap waits, bounded, for the killed child's exit status so the process
// table entry is released.
func (r *runner) reap(waitCh <-chan error) {
	select {
	case <-waitCh:
	case <-time.After(finalDrainTimeout):
		r.log.Warn("child did not report exit status after termination", "pid", r.pid)
	}
}
