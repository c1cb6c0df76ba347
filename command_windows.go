//go:build windows

package chaperon

import (
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// normalizeArgv maps an argv-style command onto the exec argv. Shell mode
// joins the words and hands them to cmd.exe.
func normalizeArgv(command []string, shell bool) ([]string, error) {
	if shell {
		return append([]string{"cmd.exe", "/c"}, command...), nil
	}
	return command, nil
}

// normalizeString hands the line to cmd.exe in shell mode. Without shell
// mode the line reaches CreateProcess verbatim through rawCommandLine; the
// argv carries only the executable token, so the child applies its own
// quoting rules instead of a re-quoted split.
func normalizeString(command string, shell bool) ([]string, error) {
	if shell {
		return []string{"cmd.exe", "/c", command}, nil
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, nil
	}
	return fields[:1], nil
}

// rawCommandLine bypasses exec's argv re-quoting and passes line to
// CreateProcess untouched.
func rawCommandLine(cmd *exec.Cmd, line string) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CmdLine = line
}

func configureSysProcAttr(cmd *exec.Cmd, noWindow bool) {
	attr := &syscall.SysProcAttr{}
	if noWindow {
		attr.HideWindow = true
		attr.CreationFlags = windows.CREATE_NO_WINDOW
	}
	cmd.SysProcAttr = attr
}

func exitStatus(state *os.ProcessState) int {
	return state.ExitCode()
}
