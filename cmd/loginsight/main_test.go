package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/loginsight/internal/adapters/input"
)

func TestLoadConfigPositionalArgs(t *testing.T) {
	cfg, err := loadConfig(analyzeCmd, []string{"log.txt", "h.txt", "hr.txt", "r.txt", "b.txt"})
	require.NoError(t, err)

	assert.Equal(t, "log.txt", cfg.Input.Path)
	assert.Equal(t, "h.txt", cfg.Reports.Hosts)
	assert.Equal(t, "hr.txt", cfg.Reports.Hours)
	assert.Equal(t, "r.txt", cfg.Reports.Resources)
	assert.Equal(t, "b.txt", cfg.Reports.Blocked)
}

func TestLoadConfigFlags(t *testing.T) {
	require.NoError(t, analyzeCmd.ParseFlags([]string{"--log", "access.json", "--format", "json", "--max-records", "50",
		"--block-events", "-", "--pretty-events"}))

	cfg, err := loadConfig(analyzeCmd, nil)
	require.NoError(t, err)

	assert.Equal(t, "access.json", cfg.Input.Path)
	assert.Equal(t, "json", cfg.Input.Format)
	assert.Equal(t, int64(50), cfg.Input.MaxRecords)
	assert.Equal(t, "hosts.txt", cfg.Reports.Hosts)
	assert.Equal(t, "-", cfg.Output.BlockEvents)
	assert.True(t, cfg.Output.BlockEventsPretty)
}

func TestAnalyzeArgsValidation(t *testing.T) {
	assert.NoError(t, analyzeCmd.Args(analyzeCmd, nil))
	assert.NoError(t, analyzeCmd.Args(analyzeCmd, []string{"a", "b", "c", "d", "e"}))
	assert.Error(t, analyzeCmd.Args(analyzeCmd, []string{"a", "b"}))
}

func TestWriteSample(t *testing.T) {
	cfg := input.DefaultGeneratorConfig()
	cfg.Lines = 20

	path := filepath.Join(t.TempDir(), "sample.log")
	n, err := writeSample(path, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, 20, strings.Count(string(data), "\n"))
}

func TestWriteSampleCreateError(t *testing.T) {
	cfg := input.DefaultGeneratorConfig()
	cfg.Lines = 1

	_, err := writeSample(filepath.Join(t.TempDir(), "missing", "sample.log"), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create output")
}
