// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config controls one analysis run.
type Config struct {
	// ProjectRoot is the directory scanned for Java sources.
	ProjectRoot string `yaml:"project_root"`

	// OutputDir receives nodes.jsonl, edges.jsonl, and the symbol
	// table dump. Defaults to "<project_root>/depgraph".
	OutputDir string `yaml:"output_dir"`

	// Workers bounds concurrent file extraction. Defaults to the
	// number of CPUs.
	Workers int `yaml:"workers"`

	// MaxFileSizeBytes is the per-file size cap handed to the parser.
	// Zero keeps the parser default.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`

	// ExcludedDirs overrides the default directory exclusions.
	ExcludedDirs []string `yaml:"excluded_dirs,omitempty"`

	// WriteSymbolTables also dumps the symbol tables as JSON for
	// diagnostics.
	WriteSymbolTables bool `yaml:"write_symbol_tables"`
}

// DefaultConfig returns a Config with defaults applied for the given
// project root.
func DefaultConfig(projectRoot string) Config {
	cfg := Config{ProjectRoot: projectRoot}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML config file and applies defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.OutputDir == "" && c.ProjectRoot != "" {
		c.OutputDir = c.ProjectRoot + "/depgraph"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate checks the config for usable values.
func (c *Config) Validate() error {
	if c.ProjectRoot == "" {
		return fmt.Errorf("config: project_root must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: output_dir must not be empty")
	}
	if c.MaxFileSizeBytes < 0 {
		return fmt.Errorf("config: max_file_size_bytes must not be negative")
	}
	return nil
}
