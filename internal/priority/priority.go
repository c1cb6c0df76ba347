// Package priority applies best-effort process and IO scheduling hints to a
// live child process. Callers are expected to log failures and continue; a
// denied priority change never aborts a run.
package priority

import (
	"errors"
	"fmt"
)

// Class is a process scheduling priority hint.
type Class string

const (
	None     Class = ""
	VeryLow  Class = "verylow"
	Low      Class = "low"
	Normal   Class = "normal"
	High     Class = "high"
	Realtime Class = "rt"
)

// IOClass is an IO scheduling priority hint.
type IOClass string

const (
	IONone   IOClass = ""
	IOLow    IOClass = "low"
	IONormal IOClass = "normal"
	IOHigh   IOClass = "high"
)

// ErrUnsupported reports a hint the current platform cannot express.
var ErrUnsupported = errors.New("priority hint unsupported on this platform")

// niceValue maps a class onto the POSIX nice scale.
func niceValue(c Class) (int, error) {
	switch c {
	case VeryLow:
		return 19, nil
	case Low:
		return 10, nil
	case Normal:
		return 0, nil
	case High:
		return -10, nil
	case Realtime:
		return -20, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", string(c))
	}
}

// Valid reports whether c names a known priority class.
func Valid(c Class) bool {
	switch c {
	case None, VeryLow, Low, Normal, High, Realtime:
		return true
	}
	return false
}

// ValidIO reports whether c names a known IO priority class.
func ValidIO(c IOClass) bool {
	switch c {
	case IONone, IOLow, IONormal, IOHigh:
		return true
	}
	return false
}

// Apply sets the requested hints on pid. Unset hints are skipped.
func Apply(pid int, c Class, io IOClass) error {
	if c != None {
		if err := applyProcess(pid, c); err != nil {
			return fmt.Errorf("set process priority %q: %w", string(c), err)
		}
	}
	if io != IONone {
		if err := applyIO(pid, io); err != nil {
			return fmt.Errorf("set io priority %q: %w", string(io), err)
		}
	}
	return nil
}
