package priority

import (
	"os/exec"
	"runtime"
	"testing"
)

func TestValid(t *testing.T) {
	for _, c := range []Class{None, VeryLow, Low, Normal, High, Realtime} {
		if !Valid(c) {
			t.Fatalf("%q should be valid", c)
		}
	}
	if Valid(Class("extreme")) {
		t.Fatalf("unknown class accepted")
	}
}

func TestValidIO(t *testing.T) {
	for _, c := range []IOClass{IONone, IOLow, IONormal, IOHigh} {
		if !ValidIO(c) {
			t.Fatalf("%q should be valid", c)
		}
	}
	if ValidIO(IOClass("extreme")) {
		t.Fatalf("unknown io class accepted")
	}
}

func TestNiceValues(t *testing.T) {
	cases := []struct {
		class Class
		nice  int
	}{
		{VeryLow, 19},
		{Low, 10},
		{Normal, 0},
		{High, -10},
		{Realtime, -20},
	}
	for _, tc := range cases {
		got, err := niceValue(tc.class)
		if err != nil {
			t.Fatalf("%q: %v", tc.class, err)
		}
		if got != tc.nice {
			t.Fatalf("%q: got nice %d, want %d", tc.class, got, tc.nice)
		}
	}
	if _, err := niceValue(None); err == nil {
		t.Fatalf("expected an error for the empty class")
	}
}

func TestApplyLowersChildPriority(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fixture uses sleep")
	}

	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start fixture: %v", err)
	}
	defer func() {
		cmd.Process.Kill()
		cmd.Wait()
	}()

	// Lowering priority never needs elevated capabilities.
	if err := Apply(cmd.Process.Pid, VeryLow, IONone); err != nil {
		t.Fatalf("apply: %v", err)
	}
}

func TestApplySkipsUnsetHints(t *testing.T) {
	// A pid is never touched when both hints are unset.
	if err := Apply(-1, None, IONone); err != nil {
		t.Fatalf("apply with no hints: %v", err)
	}
}
