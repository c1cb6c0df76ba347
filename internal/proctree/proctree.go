// Package proctree terminates a process together with all of its transitive
// descendants.
//
// Descendants are enumerated and signalled through process handles rather
// than bare pids wherever the platform allows it, so that a pid reused after
// the original process exited is never signalled by mistake. When
// enumeration is unavailable the terminator degrades to root-only
// termination with a logged capability warning.
package proctree

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shirou/gopsutil/v4/process"
)

// Terminate signals every descendant of pid and, when includeRoot is set,
// the root process itself after its descendants. soft requests a graceful
// terminate signal; otherwise an immediate kill is sent, falling back to
// terminate where kill is unsupported.
//
// It returns false when the root process could not be found (it already
// exited). In that case, if includeRoot was requested, a last-resort
// kill-by-pid is attempted and its failure is propagated rather than
// swallowed.
func Terminate(pid int, includeRoot, soft bool, log *slog.Logger) (bool, error) {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		if includeRoot {
			if kerr := killByPid(pid); kerr != nil {
				return false, fmt.Errorf("last-resort kill of pid %d: %w", pid, kerr)
			}
		}
		return false, nil
	}

	for _, child := range descendants(root, log) {
		if err := signal(child, soft); err != nil {
			log.Debug("signal descendant failed", "pid", child.Pid, "error", err)
		}
	}

	if includeRoot {
		if err := signal(root, soft); err != nil {
			log.Debug("signal root failed", "pid", pid, "error", err)
		}
	}
	return true, nil
}

// descendants returns the transitive children of root, breadth first.
func descendants(root *process.Process, log *slog.Logger) []*process.Process {
	var all []*process.Process
	queue := []*process.Process{root}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		children, err := p.Children()
		if err != nil {
			if errors.Is(err, process.ErrorNoChildren) {
				continue
			}
			log.Warn("process tree enumeration unavailable, terminating root only",
				"pid", p.Pid, "error", err)
			continue
		}
		all = append(all, children...)
		queue = append(queue, children...)
	}
	return all
}

func signal(p *process.Process, soft bool) error {
	if soft {
		return p.Terminate()
	}
	if err := p.Kill(); err != nil {
		// Immediate kill unsupported on some platforms; degrade to the
		// graceful signal.
		return p.Terminate()
	}
	return nil
}
