//go:build windows

package priority

import (
	"golang.org/x/sys/windows"
)

func applyProcess(pid int, c Class) error {
	var class uint32
	switch c {
	case VeryLow:
		class = windows.IDLE_PRIORITY_CLASS
	case Low:
		class = windows.BELOW_NORMAL_PRIORITY_CLASS
	case Normal:
		class = windows.NORMAL_PRIORITY_CLASS
	case High:
		class = windows.HIGH_PRIORITY_CLASS
	case Realtime:
		class = windows.REALTIME_PRIORITY_CLASS
	default:
		return ErrUnsupported
	}

	handle, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)
	return windows.SetPriorityClass(handle, class)
}

// Windows has no per-process IO priority API exposed through x/sys.
func applyIO(pid int, io IOClass) error {
	return ErrUnsupported
}
