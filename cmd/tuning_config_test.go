package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTuningsFile drops a tunings file into a temp dir and returns its path.
func writeTuningsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tunings.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTunings_ParsesProfiles(t *testing.T) {
	// GIVEN a tunings file with two profiles
	path := writeTuningsFile(t, `
version: "1"
tunings:
  - name: default
    hot_threshold: 16
    cache_max_blocks: 1024
  - name: bringup
    hot_threshold: 3
    cache_max_blocks: 256
`)

	// WHEN it is loaded
	cfg, err := LoadTunings(path)
	if err != nil {
		t.Fatal(err)
	}

	// THEN both profiles come back with their values intact
	if len(cfg.Tunings) != 2 {
		t.Fatalf("expected 2 tunings, got %d", len(cfg.Tunings))
	}
	if cfg.Tunings[0].Name != "default" || cfg.Tunings[0].HotThreshold != 16 || cfg.Tunings[0].CacheMaxBlocks != 1024 {
		t.Errorf("unexpected first tuning: %+v", cfg.Tunings[0])
	}
	if cfg.Tunings[1].Name != "bringup" || cfg.Tunings[1].HotThreshold != 3 || cfg.Tunings[1].CacheMaxBlocks != 256 {
		t.Errorf("unexpected second tuning: %+v", cfg.Tunings[1])
	}
}

func TestLoadTunings_MissingFile(t *testing.T) {
	if _, err := LoadTunings(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing tunings file")
	}
}

// TestGetTuning_RepoDefaults exercises the checked-in tunings.yaml when
// run from the repo root.
func TestGetTuning_RepoDefaults(t *testing.T) {
	path := tuningsFilepath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join("..", tuningsFilepath)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Skip("tunings.yaml not found, skipping integration test")
		}
	}

	cfg, err := LoadTunings(path)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, tuning := range cfg.Tunings {
		if tuning.Name == "default" {
			found = true
			if tuning.HotThreshold == 0 {
				t.Error("default profile must have a non-zero hot threshold")
			}
			if tuning.CacheMaxBlocks < 1 {
				t.Error("default profile must have a positive cache capacity")
			}
		}
	}
	if !found {
		t.Error("tunings.yaml must carry a profile named \"default\"")
	}
}
