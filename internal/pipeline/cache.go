package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/repgen"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/representation"
)

const cacheIndexVersion = 1

// EngineVersion is part of every cache entry. Bump it whenever the generated
// representation for an unchanged request and chip database changes.
const EngineVersion = "1"

type cacheEntry struct {
	Key           string `json:"key"`
	SummaryPath   string `json:"summary_path"`
	RunID         string `json:"run_id"`
	ChipDB        string `json:"chipdb"`
	EngineVersion string `json:"engine_version"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// repCache stores representation summaries keyed by request file. An entry
// is only returned when the request content and chip database still hash to
// the stored key.
type repCache struct {
	dir           string
	engineVersion string
	mu            sync.Mutex
	index         cacheIndex
}

func newRepCache(dir, engineVersion string) *repCache {
	return &repCache{
		dir:           dir,
		engineVersion: engineVersion,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *repCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *repCache) summaryDir() string {
	return filepath.Join(c.dir, "representations")
}

func (c *repCache) summaryPathForKey(key string) string {
	return filepath.Join(c.summaryDir(), key+".json")
}

func (c *repCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		// Reset on version mismatch
		c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *repCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

// Get returns the raw summary JSON stored for the request.
func (c *repCache) Get(requestPath, key string) ([]byte, cacheEntry, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[requestPath]
	c.mu.Unlock()
	if !ok || entry.Key != key || entry.EngineVersion != c.engineVersion {
		return nil, cacheEntry{}, false, nil
	}

	data, err := os.ReadFile(entry.SummaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cacheEntry{}, false, nil
		}
		return nil, cacheEntry{}, false, fmt.Errorf("read cached representation: %w", err)
	}
	return data, entry, true, nil
}

func (c *repCache) Put(requestPath, key, runID, chipID string, summary representation.Summary) error {
	summaryPath := c.summaryPathForKey(key)
	if err := writeJSONAtomic(summaryPath, summary); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[requestPath] = cacheEntry{
		Key:           key,
		SummaryPath:   summaryPath,
		RunID:         runID,
		ChipDB:        chipID,
		EngineVersion: c.engineVersion,
	}
	c.mu.Unlock()
	return nil
}

// cacheKey hashes the decoded request together with the chip database
// identity, so formatting changes of the request file keep the entry.
func cacheKey(req repgen.Request, chipID string) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(chipID))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
