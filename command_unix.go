//go:build !windows

package chaperon

import (
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/google/shlex"
)

// normalizeArgv maps an argv-style command onto the exec argv. Shell mode
// joins the words and hands them to /bin/sh.
func normalizeArgv(command []string, shell bool) ([]string, error) {
	if shell {
		return []string{"/bin/sh", "-c", strings.Join(command, " ")}, nil
	}
	return command, nil
}

// normalizeString tokenizes a command line with shell word-splitting rules,
// which is safer than enabling shell mode for the common case. Shell mode
// passes the line to /bin/sh untouched.
func normalizeString(command string, shell bool) ([]string, error) {
	if shell {
		return []string{"/bin/sh", "-c", command}, nil
	}
	return shlex.Split(command)
}

// configureSysProcAttr places the child in its own process group so that
// group signals reach every descendant even when tree enumeration degrades.
func configureSysProcAttr(cmd *exec.Cmd, noWindow bool) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// rawCommandLine is a Windows concept; POSIX children always receive the
// split argv.
func rawCommandLine(cmd *exec.Cmd, line string) {}

// exitStatus mirrors the convention of returning the negated signal number
// for a signal-terminated child, keeping it distinct from regular statuses.
func exitStatus(state *os.ProcessState) int {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return state.ExitCode()
}
