//go:build !windows

package chaperon

import (
	"fmt"
	"os/exec"
	"syscall"
)

func deferredParts(deferTime int) (shell, flag, timer string) {
	return "/bin/sh", "-c", fmt.Sprintf("ping 127.0.0.1 -c %d > /dev/null 2>&1; ", deferTime)
}

// detachProcess gives the deferred shell its own session so it survives the
// caller's exit.
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
