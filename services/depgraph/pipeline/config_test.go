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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/project")

	assert.Equal(t, "/project", cfg.ProjectRoot)
	assert.Equal(t, "/project/depgraph", cfg.OutputDir)
	assert.Greater(t, cfg.Workers, 0)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depgraph.yaml")
	content := `project_root: /project
output_dir: /tmp/graph
workers: 4
max_file_size_bytes: 1048576
excluded_dirs:
  - generated
write_symbol_tables: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/project", cfg.ProjectRoot)
	assert.Equal(t, "/tmp/graph", cfg.OutputDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, int64(1048576), cfg.MaxFileSizeBytes)
	assert.Equal(t, []string{"generated"}, cfg.ExcludedDirs)
	assert.True(t, cfg.WriteSymbolTables)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("project_root: [unclosed"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("empty project root", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig("/project")
	cfg.MaxFileSizeBytes = -1
	assert.Error(t, cfg.Validate())
}
