// ABOUTME: Tests for XDG data and config directory resolution.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultDirsUseXDG(t *testing.T) {
	data := t.TempDir()
	config := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	t.Setenv("XDG_CONFIG_HOME", config)

	got, err := defaultDataDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(data, "simwatch"); got != want {
		t.Errorf("defaultDataDir() = %q, want %q", got, want)
	}

	got, err = defaultConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(config, "simwatch", "config.yaml"); got != want {
		t.Errorf("defaultConfigPath() = %q, want %q", got, want)
	}
}

func TestDefaultDirsFallBackToHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"data", defaultDataDir, filepath.Join(home, ".local", "share", "simwatch")},
		{"config", defaultConfigDir, filepath.Join(home, ".config", "simwatch")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
