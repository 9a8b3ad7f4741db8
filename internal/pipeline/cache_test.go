package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/config"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/policy"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
)

func TestRepCachePutGet(t *testing.T) {
	dir := t.TempDir()
	c := newRepCache(dir, EngineVersion)
	require.NoError(t, c.Load())

	summary := representation.Summary{SectionLengths: []int{1}}
	require.NoError(t, c.Put("req.yaml", "k1", "run-1", "fixture:1x1", summary))
	require.NoError(t, c.Save())

	reloaded := newRepCache(dir, EngineVersion)
	require.NoError(t, reloaded.Load())

	data, entry, ok, err := reloaded.Get("req.yaml", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, "fixture:1x1", entry.ChipDB)
	assert.Contains(t, string(data), `"section_lengths"`)

	_, _, ok, err = reloaded.Get("req.yaml", "k2")
	require.NoError(t, err)
	assert.False(t, ok, "stale key")

	_, _, ok, err = newRepCache(dir, "other").Get("req.yaml", "k1")
	require.NoError(t, err)
	assert.False(t, ok, "entry from another engine version")

	require.NoError(t, os.Remove(entry.SummaryPath))
	_, _, ok, err = reloaded.Get("req.yaml", "k1")
	require.NoError(t, err)
	assert.False(t, ok, "summary file removed")
}

func TestRepCacheResetsOnVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"),
		[]byte(`{"version": 0, "entries": {"req.yaml": {"key": "k1"}}}`), 0o644))

	c := newRepCache(dir, EngineVersion)
	require.NoError(t, c.Load())
	_, _, ok, err := c.Get("req.yaml", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{"), 0o644))
	assert.Error(t, newRepCache(dir, EngineVersion).Load())
}

func TestTimingRecorderDisabled(t *testing.T) {
	tr := newTimingRecorder(time.Now(), "")
	assert.False(t, tr.Enabled())
	tr.RecordRequest("run", "req.yaml", "ok", time.Now(), time.Millisecond)
	assert.Empty(t, tr.events)
	tr.Close()

	tr = newTimingRecorder(time.Now(), filepath.Join(t.TempDir(), "missing", "timing.jsonl"))
	assert.False(t, tr.Enabled())
	assert.Error(t, tr.Err())
}

func TestLintCache(t *testing.T) {
	dir := t.TempDir()
	entry, err := loadLintCache(dir, "k1")
	require.NoError(t, err)
	assert.False(t, lintCacheValid(entry, "h"))

	hash, err := lintConfigHash("rules", map[string]string{"wide_gene": "off"})
	require.NoError(t, err)
	other, err := lintConfigHash("rules", nil)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)

	result := policy.Result{
		Violations: []policy.Violation{{Rule: "wide_gene", Severity: "info", Message: "m"}},
		Summary:    policy.Summary{TotalViolations: 1, Info: 1},
	}
	require.NoError(t, saveLintCache(dir, "k1", lintCacheEntry{Version: lintCacheVersion, ConfigHash: hash, Result: result}))

	entry, err = loadLintCache(dir, "k1")
	require.NoError(t, err)
	assert.True(t, lintCacheValid(entry, hash))
	assert.False(t, lintCacheValid(entry, other))
	assert.Equal(t, result, entry.Result)
}

func TestClearCache(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	c := newRepCache(cfg.CacheDir(root), EngineVersion)
	require.NoError(t, c.Load())
	require.NoError(t, c.Save())

	dir, err := ClearCache(root, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".icerep_cache"), dir)
	assert.NoDirExists(t, dir)

	_, err = ClearCache(root, nil)
	assert.Error(t, err)
}
