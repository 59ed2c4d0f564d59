package envdetect

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectorFindsGoProject(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example\n\ngo 1.22\n"), 0644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	profile, err := NewDetector(dir).Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(profile.Languages) != 1 {
		t.Fatalf("languages=%d want 1", len(profile.Languages))
	}
	if profile.Languages[0].Name != "go" {
		t.Fatalf("language=%q want go", profile.Languages[0].Name)
	}
	if profile.Languages[0].Version != "1.22" {
		t.Fatalf("version=%q want 1.22", profile.Languages[0].Version)
	}
}

func TestDetectorCachesResult(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example\n\ngo 1.22\n"), 0644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	d := NewDetector(dir)
	first, err := d.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	second, err := d.Detect()
	if err != nil {
		t.Fatalf("detect again: %v", err)
	}
	if first.CacheKey != second.CacheKey {
		t.Fatalf("cache key changed between runs: %q vs %q", first.CacheKey, second.CacheKey)
	}
}

func TestDetectorNoSignature(t *testing.T) {
	dir := t.TempDir()
	profile, err := NewDetector(dir).Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(profile.Languages) != 0 {
		t.Fatalf("expected no languages, got %d", len(profile.Languages))
	}
}
