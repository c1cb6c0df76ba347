package chaperon

import (
	"fmt"
	"os/exec"
)

// DeferredCommand schedules command to run in a detached shell after
// deferTime seconds, with no output capture and no tie to the caller's
// process tree. Ping doubles as the delay timer since it exists on
// virtually every system. Best-effort by contract: once started, the
// deferred process is on its own.
//
// Useful for things like self-update or self-deletion of a running binary
// after it has exited.
func DeferredCommand(command string, deferTime int) error {
	shell, flag, timer := deferredParts(deferTime)
	cmd := exec.Command(shell, flag, timer+command)
	detachProcess(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start deferred command: %w", err)
	}
	return cmd.Process.Release()
}
