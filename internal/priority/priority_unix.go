//go:build unix && !linux

package priority

import (
	"golang.org/x/sys/unix"
)

func applyProcess(pid int, c Class) error {
	nice, err := niceValue(c)
	if err != nil {
		return err
	}
	return unix.Setpriority(unix.PRIO_PROCESS, pid, nice)
}

// IO scheduling classes are a Linux concept.
func applyIO(pid int, io IOClass) error {
	return ErrUnsupported
}
