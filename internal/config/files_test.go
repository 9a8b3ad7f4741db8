package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRequestsWithExclude(t *testing.T) {
	root := t.TempDir()
	reqDir := filepath.Join(root, "requests", "nested")
	if err := os.MkdirAll(reqDir, 0o755); err != nil {
		t.Fatalf("mkdir requests: %v", err)
	}

	top := filepath.Join(root, "adder.yaml")
	nested := filepath.Join(reqDir, "osc.yml")
	skipped := filepath.Join(reqDir, "draft.yml")
	other := filepath.Join(root, "notes.txt")
	for _, f := range []string{top, nested, skipped, other} {
		if err := os.WriteFile(f, []byte("tiles: []"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Requests.Exclude = []string{"requests/**/draft.yml"}

	files, err := cfg.ResolveRequests(root)
	if err != nil {
		t.Fatalf("ResolveRequests: %v", err)
	}
	if !containsPath(files, top) {
		t.Fatalf("expected %s in %v", top, files)
	}
	if !containsPath(files, nested) {
		t.Fatalf("expected %s in %v", nested, files)
	}
	if containsPath(files, skipped) {
		t.Fatalf("expected %s to be excluded, got %v", skipped, files)
	}
	if containsPath(files, other) {
		t.Fatalf("expected %s to be ignored, got %v", other, files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] > files[i] {
			t.Fatalf("expected sorted files, got %v", files)
		}
	}
}

func TestIsRequestFile(t *testing.T) {
	tests := map[string]bool{
		"a.yaml":  true,
		"a.YML":   true,
		"a.json":  true,
		"a.cue":   false,
		"a.yaml~": false,
	}
	for path, want := range tests {
		if got := IsRequestFile(path); got != want {
			t.Fatalf("IsRequestFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func containsPath(files []string, target string) bool {
	for _, f := range files {
		if filepath.Clean(f) == filepath.Clean(target) {
			return true
		}
	}
	return false
}
