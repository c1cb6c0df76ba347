package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chaperon.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullDocument(t *testing.T) {
	path := writeConfig(t, `
timeout: 30s
method: poller
checkInterval: 25ms
encoding: utf-8
priority: low
ioPriority: low
heartbeat: 1m
silent: true
metricsListen: 127.0.0.1:9430
log:
  format: json
  level: debug
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := &Defaults{
		Timeout:       Duration{30 * time.Second},
		Method:        "poller",
		CheckInterval: Duration{25 * time.Millisecond},
		Encoding:      "utf-8",
		Priority:      "low",
		IOPriority:    "low",
		Heartbeat:     Duration{time.Minute},
		Silent:        true,
		MetricsListen: "127.0.0.1:9430",
		Log:           Log{Format: "json", Level: "debug"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("loaded defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEmptyFieldsKeepZeroValues(t *testing.T) {
	path := writeConfig(t, "method: auto\n")
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Timeout.Duration != 0 || got.Silent || got.Log.Format != "" {
		t.Fatalf("unexpected non-zero defaults: %+v", got)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "timout: 30s\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an unknown-field error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		frag string
	}{
		{"method", "method: turbo\n", "method"},
		{"priority", "priority: extreme\n", "priority"},
		{"ioPriority", "ioPriority: extreme\n", "ioPriority"},
		{"logFormat", "log:\n  format: xml\n", "log.format"},
		{"logLevel", "log:\n  level: loud\n", "log.level"},
		{"negativeTimeout", "timeout: -5s\n", "timeout"},
		{"negativeInterval", "checkInterval: -1ms\n", "checkInterval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.frag) {
				t.Fatalf("error %q does not mention %q", err, tc.frag)
			}
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1.5s")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected duration %v", d.Duration)
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(text) != "1.5s" {
		t.Fatalf("unexpected text %q", text)
	}
	if err := d.UnmarshalText(nil); err != nil {
		t.Fatalf("unmarshal empty: %v", err)
	}
	if d.Duration != 0 {
		t.Fatalf("empty text should reset to zero, got %v", d.Duration)
	}
}
