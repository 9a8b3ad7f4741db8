package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/config"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/policy"
)

const lintCacheVersion = 1

// lintCacheEntry is the lint result of one cached representation. It stays
// valid while the policy sources and the configured severities are unchanged.
type lintCacheEntry struct {
	Version    int           `json:"version"`
	ConfigHash string        `json:"config_hash"`
	Result     policy.Result `json:"result"`
}

func lintCachePath(dir, key string) string {
	return filepath.Join(dir, "lint", key+".json")
}

func loadLintCache(dir, key string) (*lintCacheEntry, error) {
	data, err := os.ReadFile(lintCachePath(dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entry lintCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parse lint cache: %w", err)
	}
	return &entry, nil
}

func saveLintCache(dir, key string, entry lintCacheEntry) error {
	if err := writeJSONAtomic(lintCachePath(dir, key), entry); err != nil {
		return fmt.Errorf("write lint cache: %w", err)
	}
	return nil
}

func lintCacheValid(entry *lintCacheEntry, configHash string) bool {
	return entry != nil && entry.Version == lintCacheVersion && entry.ConfigHash == configHash
}

// lintConfigHash covers the policy sources and the severity overrides.
func lintConfigHash(rulesHash string, severities map[string]string) (string, error) {
	payload := struct {
		Rules      string            `json:"rules"`
		Severities map[string]string `json:"severities"`
	}{
		Rules:      rulesHash,
		Severities: severities,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal lint config hash: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ClearCache removes the representation and lint cache of a project.
// Returns the cache directory that was targeted.
func ClearCache(rootPath string, cfg *config.Config) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("clear cache: config is nil")
	}
	cacheDir := cfg.CacheDir(rootPath)
	if err := os.RemoveAll(cacheDir); err != nil {
		return cacheDir, fmt.Errorf("remove cache: %w", err)
	}
	return cacheDir, nil
}
