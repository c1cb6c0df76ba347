//go:build windows

package proctree

import (
	"errors"
	"os/exec"
	"strconv"
)

// killByPid falls back to the taskkill utility, the closest Windows has to a
// native tree kill.
func killByPid(pid int) error {
	err := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
	if err != nil {
		// taskkill exits 128 when the process no longer exists.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 128 {
			return nil
		}
		return err
	}
	return nil
}
