//go:build !windows

package proctree

import (
	"errors"

	"golang.org/x/sys/unix"
)

// killByPid is the last resort for a root process whose handle could not be
// obtained. ESRCH means the process is already gone and is not a failure.
func killByPid(pid int) error {
	err := unix.Kill(pid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
