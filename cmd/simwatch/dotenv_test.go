// ABOUTME: Tests for the .env loader: line parsing, quoting and no-clobber behaviour.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDotEnvLine(t *testing.T) {
	tests := []struct {
		line       string
		key, value string
		ok         bool
	}{
		{"SIMWATCH_SERVER=http://sim:8080", "SIMWATCH_SERVER", "http://sim:8080", true},
		{"export A=1", "A", "1", true},
		{`B="two words"`, "B", "two words", true},
		{"C='single'", "C", "single", true},
		{`D="mismatched'`, "D", `"mismatched'`, true},
		{"E=a=b", "E", "a=b", true},
		{"  F = spaced  ", "F", "spaced", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"no equals", "", "", false},
		{"=orphan", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			key, value, ok := parseDotEnvLine(tt.line)
			if ok != tt.ok || key != tt.key || value != tt.value {
				t.Errorf("parseDotEnvLine(%q) = %q, %q, %v; want %q, %q, %v",
					tt.line, key, value, ok, tt.key, tt.value, tt.ok)
			}
		})
	}
}

func TestLoadDotEnvDoesNotClobber(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "TEST_SIMWATCH_NEW=fromfile\nTEST_SIMWATCH_SET=fromfile\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_SIMWATCH_NEW", "")
	os.Unsetenv("TEST_SIMWATCH_NEW")
	t.Setenv("TEST_SIMWATCH_SET", "fromenv")

	loadDotEnv(path)

	if got := os.Getenv("TEST_SIMWATCH_NEW"); got != "fromfile" {
		t.Errorf("TEST_SIMWATCH_NEW = %q, want fromfile", got)
	}
	if got := os.Getenv("TEST_SIMWATCH_SET"); got != "fromenv" {
		t.Errorf("TEST_SIMWATCH_SET = %q, want fromenv", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	loadDotEnv(filepath.Join(t.TempDir(), "nope.env"))
}
