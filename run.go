// Package chaperon launches an external program, collects or redirects its
// output, enforces a wall-clock timeout and an optional cancellation
// predicate, and guarantees the child process tree is terminated on every
// abort path.
package chaperon

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chaperon-run/chaperon/internal/metrics"
	"github.com/chaperon-run/chaperon/internal/priority"
	"github.com/chaperon-run/chaperon/internal/proctree"
	"github.com/chaperon-run/chaperon/internal/textenc"
	"github.com/chaperon-run/chaperon/internal/watchdog"
)

// finalDrainTimeout bounds the join on reader goroutines after the process
// has exited or been killed. Output produced between the last read and exit
// is drained within this window.
const finalDrainTimeout = 500 * time.Millisecond

// Run executes command (argv style) under supervision and returns its
// outcome. Cancelling ctx interrupts the run: the process tree is terminated
// and the result carries ExitInterrupted.
//
// Run never returns an error; every failure mode is mapped onto one of the
// sentinel exit codes with the best-effort output attached.
func Run(ctx context.Context, command []string, opts *Options) Result {
	o := opts.withDefaults()
	display := strings.Join(command, " ")
	argv, err := normalizeArgv(command, o.Shell)
	if err == nil && len(argv) == 0 {
		err = fmt.Errorf("empty command")
	}
	if err != nil {
		return configFailure(o, display, err)
	}
	return run(ctx, argv, display, "", o)
}

// RunString executes a single command line. Without shell mode the line is
// split using shell word-splitting rules on POSIX and passed through on
// Windows; with shell mode it is handed to the platform shell verbatim.
func RunString(ctx context.Context, command string, opts *Options) Result {
	o := opts.withDefaults()
	argv, err := normalizeString(command, o.Shell)
	if err == nil && len(argv) == 0 {
		err = fmt.Errorf("empty command")
	}
	if err != nil {
		return configFailure(o, command, err)
	}
	raw := ""
	if !o.Shell {
		raw = command
	}
	return run(ctx, argv, command, raw, o)
}

func configFailure(o *Options, display string, err error) Result {
	msg := fmt.Sprintf("invalid configuration for command %q: %v", display, err)
	o.runLogger().Error("invalid run configuration", "command", display, "error", err)
	res := Result{ExitCode: ExitInvalidConfig, Output: newCapture(msg)}
	metrics.ObserveRun(outcomeLabel(ExitInvalidConfig), 0)
	if o.OnExit != nil {
		o.OnExit(res)
	}
	return res
}

type runner struct {
	opts    *Options
	log     *slog.Logger
	decode  textenc.Decoder
	display string
	start   time.Time

	cmd *exec.Cmd
	pid int

	stdout *stream
	stderr *stream // nil when stderr is merged into stdout

	readers   []*pipeReader
	writeEnds []*os.File
}

// rawLine, when non-empty, is the unsplit command line for platforms that
// pass it to the OS verbatim; POSIX ignores it.
func run(ctx context.Context, argv []string, display, rawLine string, o *Options) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	log := o.runLogger()

	finish := func(res Result) Result {
		res.Duration = time.Since(start)
		metrics.ObserveRun(outcomeLabel(res.ExitCode), res.Duration)
		if o.OnExit != nil {
			o.OnExit(res)
		}
		return res
	}

	method, err := o.resolveMethod()
	if err != nil {
		log.Error("invalid run configuration", "command", display, "error", err)
		return finish(Result{ExitCode: ExitInvalidConfig, Output: newCapture(err.Error())})
	}

	decode, err := textenc.New(o.Encoding)
	if err != nil {
		log.Error("invalid run configuration", "command", display, "error", err)
		return finish(Result{ExitCode: ExitInvalidConfig, Output: newCapture(err.Error())})
	}

	r := &runner{opts: o, log: log, decode: decode, display: display, start: start}
	if err := r.openStreams(); err != nil {
		r.closeStreams("")
		log.Error("cannot open output destination", "command", display, "error", err)
		return finish(Result{ExitCode: ExitSpawnFailure, Output: newCapture(err.Error())})
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = o.Dir
	if len(o.Env) > 0 {
		cmd.Env = append(os.Environ(), o.Env...)
	}
	cmd.Stdin = o.Stdin
	configureSysProcAttr(cmd, o.WindowsNoWindow)
	if rawLine != "" {
		rawCommandLine(cmd, rawLine)
	}

	if err := r.wireProcess(cmd, method); err != nil {
		r.closePipes()
		r.closeStreams("")
		log.Error("cannot wire process pipes", "command", display, "error", err)
		return finish(Result{ExitCode: ExitUnknown, Output: newCapture(err.Error())})
	}

	if err := cmd.Start(); err != nil {
		r.closePipes()
		r.closeStreams("")
		msg := fmt.Sprintf("command %q failed: %v", display, err)
		log.Error("command spawn failed", "command", display, "error", err)
		return finish(Result{ExitCode: ExitSpawnFailure, Output: newCapture(msg)})
	}
	r.cmd = cmd
	r.pid = cmd.Process.Pid
	r.closeWriteEnds()
	r.startReaders(method)

	if o.Priority != "" || o.IOPriority != "" {
		if err := priority.Apply(r.pid, priority.Class(o.Priority), priority.IOClass(o.IOPriority)); err != nil {
			log.Warn("priority hint not applied", "pid", r.pid, "error", err)
		}
	}
	stopHeartbeat := watchdog.Heartbeat(log, o.Heartbeat, display, start)
	defer stopHeartbeat()

	if o.ProcessCallback != nil {
		o.ProcessCallback(cmd)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var code int
	var outcome watchdog.Outcome
	if method == MethodPoller {
		code, outcome = r.collectPoller(ctx, waitCh)
	} else {
		code, outcome = r.collectMonitor(ctx, waitCh)
	}

	return finish(r.buildResult(code, outcome))
}

// openStreams resolves both destinations. stderr stays a separate stream
// only when split streams are enabled or its destination differs from plain
// capture; otherwise it is merged into stdout at the descriptor level.
func (r *runner) openStreams() error {
	var err error
	r.stdout, err = r.newStream("stdout", r.opts.Stdout, os.Stdout)
	if err != nil {
		return err
	}
	if r.opts.SplitStreams || r.opts.Stderr.kind != destCapture {
		r.stderr, err = r.newStream("stderr", r.opts.Stderr, os.Stderr)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) closeStreams(failMsg string) {
	r.stdout.close(failMsg)
	r.stderr.close(failMsg)
}

// pipeReader drains one pipe from the child. The monitor variant
// accumulates raw bytes; the poller variant forwards line chunks to ch and
// closes it when the stream ends.
type pipeReader struct {
	stream *stream
	r      *os.File
	ch     chan []byte
	done   chan struct{}

	// mu guards buf: a descendant inheriting the pipe can keep the reader
	// alive long after the child exited, so the final drain snapshots the
	// buffer instead of waiting for EOF.
	mu  sync.Mutex
	buf bytes.Buffer
}

func (pr *pipeReader) runMonitor() {
	defer close(pr.done)
	defer pr.r.Close()
	chunk := make([]byte, 32*1024)
	for {
		n, err := pr.r.Read(chunk)
		if n > 0 {
			pr.mu.Lock()
			pr.buf.Write(chunk[:n])
			pr.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// snapshot copies whatever the reader has accumulated so far.
func (pr *pipeReader) snapshot() []byte {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return append([]byte(nil), pr.buf.Bytes()...)
}

func (pr *pipeReader) runPoller() {
	defer close(pr.ch)
	defer pr.r.Close()
	br := bufio.NewReader(pr.r)
	for {
		chunk, err := br.ReadBytes('\n')
		if len(chunk) > 0 {
			pr.ch <- chunk
		}
		if err != nil {
			return
		}
	}
}

// join waits for the reader's goroutine, bounded. Reports whether the
// reader reached EOF within the window.
func (pr *pipeReader) join(limit time.Duration) bool {
	select {
	case <-pr.done:
		return true
	case <-time.After(limit):
		return false
	}
}

func (r *runner) newPipe(s *stream) (*os.File, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create pipe: %w", err)
	}
	r.readers = append(r.readers, &pipeReader{
		stream: s,
		r:      pr,
		ch:     make(chan []byte, 64),
		done:   make(chan struct{}),
	})
	r.writeEnds = append(r.writeEnds, pw)
	return pw, nil
}

// wireProcess connects the resolved streams to the child's descriptors.
func (r *runner) wireProcess(cmd *exec.Cmd, method Method) error {
	if method == MethodPoller {
		return r.wirePoller(cmd)
	}
	return r.wireMonitor(cmd)
}

// wireMonitor plumbs file, discard and inherited destinations directly at
// the OS level; only captured streams go through a pipe.
func (r *runner) wireMonitor(cmd *exec.Cmd) error {
	target, needsPipe := r.stdout.monitorTarget(os.Stdout)
	if needsPipe {
		pw, err := r.newPipe(r.stdout)
		if err != nil {
			return err
		}
		cmd.Stdout = pw
	} else if target != nil {
		cmd.Stdout = target
	}

	if r.stderr == nil {
		cmd.Stderr = cmd.Stdout
		return nil
	}
	target, needsPipe = r.stderr.monitorTarget(os.Stderr)
	if needsPipe {
		pw, err := r.newPipe(r.stderr)
		if err != nil {
			return err
		}
		cmd.Stderr = pw
	} else if target != nil {
		cmd.Stderr = target
	}
	return nil
}

// wirePoller pipes every non-discarded stream so the scheduling loop can
// fan chunks out to the configured sinks.
func (r *runner) wirePoller(cmd *exec.Cmd) error {
	if r.stdout.dest.kind != destDiscard {
		pw, err := r.newPipe(r.stdout)
		if err != nil {
			return err
		}
		cmd.Stdout = pw
	}
	if r.stderr == nil {
		cmd.Stderr = cmd.Stdout
		return nil
	}
	if r.stderr.dest.kind != destDiscard {
		pw, err := r.newPipe(r.stderr)
		if err != nil {
			return err
		}
		cmd.Stderr = pw
	}
	return nil
}

func (r *runner) startReaders(method Method) {
	for _, pr := range r.readers {
		if method == MethodPoller {
			go pr.runPoller()
		} else {
			go pr.runMonitor()
		}
	}
}

// closeWriteEnds releases the parent's copies of the pipe write ends after
// a successful spawn, so readers observe EOF once the child exits.
func (r *runner) closeWriteEnds() {
	for _, w := range r.writeEnds {
		_ = w.Close()
	}
	r.writeEnds = nil
}

// closePipes tears both ends down when the child never ran (wiring or
// spawn failure).
func (r *runner) closePipes() {
	for _, w := range r.writeEnds {
		_ = w.Close()
	}
	r.writeEnds = nil
	for _, pr := range r.readers {
		_ = pr.r.Close()
	}
	r.readers = nil
}

// killTree terminates the child and every descendant. Invoked by the
// watchdog on timeout/cancellation and by the supervisor on caller
// interrupt.
func (r *runner) killTree() {
	metrics.IncTreeTermination()
	found, err := proctree.Terminate(r.pid, true, false, r.log)
	if err != nil {
		r.log.Error("process tree termination failed", "pid", r.pid, "error", err)
		return
	}
	if !found {
		r.log.Debug("process already gone at termination", "pid", r.pid)
	}
}

// buildResult maps the collector's outcome onto the final exit code and
// captures, flushes failure messages to file destinations and closes every
// owned resource.
func (r *runner) buildResult(code int, outcome watchdog.Outcome) Result {
	partial := r.stdout.text()
	if r.stderr != nil {
		if t := r.stderr.text(); t != "" {
			if partial != "" {
				partial += "\n"
			}
			partial += t
		}
	}

	exitCode := code
	var failMsg string
	switch outcome {
	case watchdog.Timeout:
		exitCode = ExitTimeout
		failMsg = fmt.Sprintf("Timeout of %s expired for command %q: original output was: %s",
			r.opts.Timeout, r.display, partial)
	case watchdog.Cancelled:
		exitCode = ExitCancelled
		failMsg = fmt.Sprintf("Command %q was stopped by the cancellation predicate: original output was: %s",
			r.display, partial)
	case watchdog.Interrupted:
		exitCode = ExitInterrupted
		failMsg = fmt.Sprintf("Command %q was interrupted by the caller: original output was: %s",
			r.display, partial)
	}

	r.closeStreams(failMsg)

	res := Result{ExitCode: exitCode}
	if failMsg != "" {
		res.Output = newCapture(failMsg)
		if r.opts.SplitStreams {
			res.Stdout = r.stdout.resultCapture()
			res.Stderr = r.stderr.resultCapture()
		}
	} else if r.opts.SplitStreams {
		res.Stdout = r.stdout.resultCapture()
		res.Stderr = r.stderr.resultCapture()
	} else {
		res.Output = r.stdout.resultCapture()
	}

	metrics.AddOutputBytes("stdout", len(r.stdout.text()))
	if r.stderr != nil {
		metrics.AddOutputBytes("stderr", len(r.stderr.text()))
	}

	r.logCompletion(exitCode)
	return res
}

func (r *runner) logCompletion(code int) {
	if code >= 0 && r.opts.validExit(code) {
		r.log.Debug("command completed", "command", r.display, "exitCode", code)
		return
	}
	r.log.Error("command failed", "command", r.display, "exitCode", code)
}

// exitCodeFromWait translates the wait error into the child's exit status.
func (r *runner) exitCodeFromWait(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitStatus(exitErr.ProcessState)
	}
	r.log.Error("wait on child failed", "command", r.display, "error", err)
	return ExitUnknown
}

func outcomeLabel(code int) string {
	switch {
	case code == ExitInvalidConfig:
		return "invalid"
	case code == ExitCancelled:
		return "cancelled"
	case code == ExitInterrupted:
		return "interrupted"
	case code == ExitSpawnFailure:
		return "spawn_failure"
	case code == ExitTimeout:
		return "timeout"
	case code == ExitUnknown:
		return "unknown"
	case code == 0:
		return "success"
	default:
		return "failure"
	}
}
