package chaperon

import (
	"io"
	"os"

	"github.com/chaperon-run/chaperon/internal/sink"
)

// stream carries the resolved destinations for one of the child's output
// streams. Destinations are resolved exactly once, before spawn; the
// collectors only dispatch into the prepared sinks.
type stream struct {
	name string
	dest Destination

	// buf accumulates decoded output when an in-memory copy was requested
	// or is needed for error reporting. nil for discard and inherit.
	buf *sink.Buffer

	// report marks the capture as part of the result, not just error
	// reporting.
	report bool

	// file is set for file destinations so the failure message can be
	// appended before close.
	file *sink.File

	// sinks are the fan-out targets fed by the poller loop.
	sinks []sink.Sink
}

// newStream resolves dest for the named stream. echo is the parent stream
// used for inherited destinations and live output.
func (r *runner) newStream(name string, dest Destination, echo io.Writer) (*stream, error) {
	s := &stream{name: name, dest: dest}
	switch dest.kind {
	case destCapture:
		s.buf = &sink.Buffer{}
		s.report = true
	case destDiscard:
	case destFile:
		f, err := sink.NewFile(dest.path)
		if err != nil {
			return nil, err
		}
		s.file = f
		s.sinks = append(s.sinks, f)
		s.buf = &sink.Buffer{}
	case destCallback:
		s.sinks = append(s.sinks, sink.NewCallback(dest.fn))
		s.buf = &sink.Buffer{}
	case destQueue:
		q := sink.NewQueue(dest.ch, r.opts.CheckInterval, r.opts.NoCloseQueues, r.log)
		s.sinks = append(s.sinks, q)
		s.buf = &sink.Buffer{}
	case destInherit:
		s.sinks = append(s.sinks, sink.NewConsole(echo))
	}
	if r.opts.LiveOutput && dest.kind != destInherit {
		s.sinks = append(s.sinks, sink.NewConsole(echo))
	}
	return s, nil
}

// dispatch feeds one decoded chunk to the accumulator and every sink.
func (s *stream) dispatch(chunk string) {
	if s.buf != nil {
		_ = s.buf.Write(chunk)
	}
	for _, sk := range s.sinks {
		_ = sk.Write(chunk)
	}
}

// text returns whatever was accumulated, for error reporting.
func (s *stream) text() string {
	if s == nil || s.buf == nil {
		return ""
	}
	t, _ := s.buf.Contents()
	return t
}

// resultCapture renders the stream for the final Result. Only destinations
// that requested an in-memory copy produce a valid capture; a captured
// stream that wrote nothing yields an empty string, which stays distinct
// from the no-capture case.
func (s *stream) resultCapture() Capture {
	if s == nil || !s.report || s.buf == nil {
		return Capture{}
	}
	t, _ := s.buf.Contents()
	return newCapture(t)
}

// close appends the failure message to owned files and closes every sink.
// Safe to call more than once; each sink's close is idempotent.
func (s *stream) close(failMsg string) {
	if s == nil {
		return
	}
	if s.file != nil && failMsg != "" {
		s.file.Fail(failMsg)
	}
	for _, sk := range s.sinks {
		_ = sk.Close()
	}
	if s.file != nil {
		_ = s.file.Close()
	}
}

// monitorTarget maps the destination onto a direct OS-level redirection for
// the monitor strategy. needsPipe is true for captured streams, which are
// the only ones the monitor reads itself. A nil file with needsPipe false
// means the stream is discarded (exec wires the null device).
func (s *stream) monitorTarget(inherit *os.File) (f *os.File, needsPipe bool) {
	switch s.dest.kind {
	case destCapture:
		return nil, true
	case destFile:
		return s.file.Handle(), false
	case destInherit:
		return inherit, false
	default:
		return nil, false
	}
}
