package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// records decodes one JSON log record per line.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestSetup_LevelsFollowDebugFlag(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    []string
	}{
		{"default", false, []string{"info", "warn", "error"}},
		{"debug", true, []string{"debug", "info", "warn", "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(tt.verbose, true, &buf)

			Debug("killing simulated target")
			Info("session context")
			Warn("cleanup: kill simulated target")
			Error("session panicked")

			recs := records(t, &buf)
			if len(recs) != len(tt.want) {
				t.Fatalf("got %d records, want %d: %v", len(recs), len(tt.want), recs)
			}
			for i, level := range tt.want {
				if recs[i]["level"] != level {
					t.Errorf("record %d level = %v, want %s", i, recs[i]["level"], level)
				}
			}
			if Verbose != tt.verbose {
				t.Errorf("Verbose = %v, want %v", Verbose, tt.verbose)
			}
		})
	}
}

func TestSetup_JSONRecord(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, true, &buf)

	Info("loaded harness config", "path", "bstest.toml", "root", "/srv/bstest")

	recs := records(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	want := map[string]string{
		"msg":  "loaded harness config",
		"path": "bstest.toml",
		"root": "/srv/bstest",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %q", k, rec[k], v)
		}
	}
	if prefix, _ := rec["prefix"].(string); !strings.HasPrefix(prefix, "bstest") {
		t.Errorf("prefix = %v, want bstest", rec["prefix"])
	}
}

func TestSetup_TimestampsOnlyWhenDebugging(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		var buf bytes.Buffer
		Setup(verbose, true, &buf)

		Info("session state", "to", "running")

		recs := records(t, &buf)
		if len(recs) != 1 {
			t.Fatalf("got %d records, want 1", len(recs))
		}
		if _, ok := recs[0]["time"]; ok != verbose {
			t.Errorf("verbose=%v: timestamp present = %v", verbose, ok)
		}
	}
}

func TestWith_CarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	Setup(true, true, &buf)

	With("session", "0d9f3c1e").Debug("spawning container", "name", "bstest-sim-0d9f3c1e")

	recs := records(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0]["session"] != "0d9f3c1e" || recs[0]["name"] != "bstest-sim-0d9f3c1e" {
		t.Errorf("record = %v", recs[0])
	}
}

func TestSetup_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(false, false, &buf)

	Warn("failed to kill simulated target", "name", "bstest-sim-0d9f3c1e")

	output := buf.String()
	for _, want := range []string{"bstest", "failed to kill simulated target", "name=bstest-sim-0d9f3c1e"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("text output should not be JSON: %s", output)
	}
}

func TestSetup_NilWriter(t *testing.T) {
	Setup(false, false, nil)

	if Logger == nil {
		t.Error("Logger should not be nil after Setup with nil writer")
	}
}
