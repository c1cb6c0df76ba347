//go:build !windows

package chaperon_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/chaperon-run/chaperon"
)

func TestTreeTerminationLeavesNoSurvivors(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	opts := silentOpts()
	opts.Timeout = 700 * time.Millisecond
	opts.Stdout = chaperon.ToCallback(func(s string) {
		mu.Lock()
		lines = append(lines, s)
		mu.Unlock()
	})

	res := chaperon.Run(context.Background(),
		[]string{"/bin/sh", "-c", "sleep 300 & echo $!; wait"}, opts)
	if res.ExitCode != chaperon.ExitTimeout {
		t.Fatalf("expected exit code %d, got %d", chaperon.ExitTimeout, res.ExitCode)
	}

	mu.Lock()
	if len(lines) == 0 {
		mu.Unlock()
		t.Fatalf("never received the grandchild pid")
	}
	pidText := strings.TrimSpace(lines[0])
	mu.Unlock()

	pid, err := strconv.Atoi(pidText)
	if err != nil {
		t.Fatalf("unexpected pid line %q", pidText)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if err := syscall.Kill(pid, 0); err == syscall.ESRCH {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("grandchild %d still alive after tree termination", pid)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestSignalTerminatedChildReportsNegativeSignal(t *testing.T) {
	opts := silentOpts()
	opts.AllExitCodesValid = true
	res := chaperon.Run(context.Background(),
		[]string{"/bin/sh", "-c", "kill -TERM $$"}, opts)
	if res.ExitCode != -int(syscall.SIGTERM) {
		t.Fatalf("expected exit code %d, got %d", -int(syscall.SIGTERM), res.ExitCode)
	}
}
