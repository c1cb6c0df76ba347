//go:build linux

package priority

import (
	"golang.org/x/sys/unix"
)

// ioprio_set constants from linux/ioprio.h; x/sys/unix exposes the syscall
// number but not the value encoding.
const (
	ioprioWhoProcess = 1
	ioprioClassShift = 13

	ioprioClassRT   = 1
	ioprioClassBE   = 2
	ioprioClassIdle = 3
)

func applyProcess(pid int, c Class) error {
	nice, err := niceValue(c)
	if err != nil {
		return err
	}
	return unix.Setpriority(unix.PRIO_PROCESS, pid, nice)
}

func applyIO(pid int, io IOClass) error {
	var class, data uintptr
	switch io {
	case IOLow:
		class = ioprioClassIdle
	case IONormal:
		class, data = ioprioClassBE, 4
	case IOHigh:
		class, data = ioprioClassRT, 0
	default:
		return ErrUnsupported
	}
	value := class<<ioprioClassShift | data
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET, ioprioWhoProcess, uintptr(pid), value)
	if errno != 0 {
		return errno
	}
	return nil
}
