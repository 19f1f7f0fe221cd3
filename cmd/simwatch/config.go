// ABOUTME: YAML configuration for simwatch with environment and flag overrides.
// ABOUTME: Precedence is defaults, then config file, then SIMWATCH_SERVER, then explicit flags.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultServer = "http://127.0.0.1:8080"
	serverEnv     = "SIMWATCH_SERVER"
)

// Config is the resolved CLI configuration.
type Config struct {
	Server   string `yaml:"server"`
	Listen   string `yaml:"listen"`
	Database string `yaml:"database"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
	Record   bool   `yaml:"record"`
}

func defaultConfig() (Config, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Server:   defaultServer,
		Database: filepath.Join(dataDir, "recordings.db"),
		LogFile:  filepath.Join(dataDir, "simwatch.log"),
		LogLevel: "info",
	}, nil
}

// loadConfig reads path over the defaults. When explicit is false a missing
// file is fine; an explicitly named file must exist.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg, err := defaultConfig()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if server := strings.TrimSpace(os.Getenv(serverEnv)); server != "" {
		cfg.Server = server
	}
	return cfg, nil
}
