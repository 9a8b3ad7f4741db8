package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/chipdb"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/config"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/facts"
)

const request = `
tiles: [[1, 1], [2, 1]]
exclude_resources:
  - {tile: all, name: ".*"}
include_resources:
  - {tile: all_logic, name: "NET#unconnected"}
  - {tile: all_logic, name: "NET#lutff_5/"}
  - {tile: all_logic, name: 'NET#local_g\d_5'}
  - {tile: all_logic, name: "LUT#5"}
`

func setup(t *testing.T) (cfgPath, reqPath string) {
	t.Helper()
	t.Setenv("ICEREP_CHIPDB", "")
	t.Setenv("ICEREP_TIMING", "")
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Fixture = config.FixtureConfig{Width: 2, Height: 1}
	cfgPath = filepath.Join(dir, "icerep.json")
	require.NoError(t, cfg.Save(cfgPath))

	reqPath = filepath.Join(dir, "req.yaml")
	require.NoError(t, os.WriteFile(reqPath, []byte(request), 0o644))
	return cfgPath, reqPath
}

func TestFactsToStdout(t *testing.T) {
	cfgPath, reqPath := setup(t)
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--config", cfgPath, reqPath}, &stdout, &stderr))

	var tables facts.Tables
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &tables))
	assert.NotEmpty(t, tables.Genes)
	assert.NotEmpty(t, tables.GeneBits)
}

func TestFactsTilesAndDelta(t *testing.T) {
	cfgPath, reqPath := setup(t)
	dir := filepath.Dir(reqPath)
	full := filepath.Join(dir, "full.json")
	filtered := filepath.Join(dir, "tile.json")
	deltaPath := filepath.Join(dir, "delta.json")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--config", cfgPath, "-o", full, reqPath}, &stdout, &stderr))
	require.NoError(t, run(context.Background(), []string{
		"--config", cfgPath, "-o", filtered, "--tiles", "2,1",
		"--delta-from", full, "--delta-out", deltaPath, reqPath,
	}, &stdout, &stderr))

	tables, err := readTables(filtered)
	require.NoError(t, err)
	require.NotEmpty(t, tables.GeneBits)
	for _, row := range tables.GeneBits {
		assert.Equal(t, 2, row.X)
	}

	data, err := os.ReadFile(deltaPath)
	require.NoError(t, err)
	var delta facts.Delta
	require.NoError(t, json.Unmarshal(data, &delta))
	assert.Empty(t, delta.Added.Genes, "same request, no changes")
	assert.Empty(t, delta.Removed.GeneBits)
}

func TestFactsArgumentErrors(t *testing.T) {
	cfgPath, reqPath := setup(t)
	tests := [][]string{
		{},
		{"--delta-from", "prev.json", reqPath},
		{"--config", cfgPath, "--tiles", "1", reqPath},
	}
	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		assert.Error(t, run(context.Background(), args, &stdout, &stderr), "%v", args)
	}
}

func TestParseTiles(t *testing.T) {
	tiles, err := parseTiles("1,1; 2,1;")
	require.NoError(t, err)
	assert.Equal(t, map[chipdb.Tile]bool{{X: 1, Y: 1}: true, {X: 2, Y: 1}: true}, tiles)

	for _, bad := range []string{"", ";", "1", "a,1", "-1,0"} {
		_, err := parseTiles(bad)
		assert.Error(t, err, bad)
	}
}
