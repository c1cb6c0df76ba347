//go:build windows

package chaperon

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func deferredParts(deferTime int) (shell, flag, timer string) {
	return "cmd.exe", "/c", fmt.Sprintf("ping 127.0.0.1 -n %d > NUL & ", deferTime)
}

func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
	}
}
