//go:build !windows

package chaperon

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeStringSplitsWords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`echo hello`, []string{"echo", "hello"}},
		{`echo "hello world"`, []string{"echo", "hello world"}},
		{`echo 'single quoted'`, []string{"echo", "single quoted"}},
		{`grep -e "a b" file`, []string{"grep", "-e", "a b", "file"}},
	}
	for _, tc := range cases {
		got, err := normalizeString(tc.in, false)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%q: (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestNormalizeStringShellMode(t *testing.T) {
	got, err := normalizeString("echo a && echo b", true)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []string{"/bin/sh", "-c", "echo a && echo b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNormalizeStringRejectsUnbalancedQuote(t *testing.T) {
	if _, err := normalizeString(`echo "unterminated`, false); err == nil {
		t.Fatalf("expected a tokenization error")
	}
}

func TestNormalizeArgvShellJoins(t *testing.T) {
	got, err := normalizeArgv([]string{"echo", "a", "&&", "echo", "b"}, true)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []string{"/bin/sh", "-c", "echo a && echo b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNormalizeArgvPassthrough(t *testing.T) {
	in := []string{"ls", "-l", "dir with spaces"}
	got, err := normalizeArgv(in, false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
