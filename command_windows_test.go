//go:build windows

package chaperon

import (
	"os/exec"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeStringKeepsExecutableToken(t *testing.T) {
	got, err := normalizeString(`app.exe /flag "quoted arg"`, false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if diff := cmp.Diff([]string{"app.exe"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNormalizeStringShellMode(t *testing.T) {
	got, err := normalizeString("echo a && echo b", true)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []string{"cmd.exe", "/c", "echo a && echo b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNormalizeStringEmpty(t *testing.T) {
	got, err := normalizeString("   ", false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected an empty argv, got %v", got)
	}
}

func TestRawCommandLinePreservesQuoting(t *testing.T) {
	line := `app.exe /flag "quoted arg"`
	cmd := exec.Command("cmd.exe")
	rawCommandLine(cmd, line)
	if cmd.SysProcAttr == nil || cmd.SysProcAttr.CmdLine != line {
		t.Fatalf("command line not passed through: %+v", cmd.SysProcAttr)
	}

	// An existing SysProcAttr must be kept, not replaced.
	cmd = exec.Command("cmd.exe")
	configureSysProcAttr(cmd, true)
	rawCommandLine(cmd, line)
	if !cmd.SysProcAttr.HideWindow {
		t.Fatalf("raw command line clobbered the spawn attributes")
	}
	if cmd.SysProcAttr.CmdLine != line {
		t.Fatalf("command line missing after attribute setup")
	}
}
