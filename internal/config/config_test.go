package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.StorageKey != "meme-store" {
		t.Errorf("StorageKey = %q, want %q", cfg.StorageKey, "meme-store")
	}
	if cfg.RecentImagesMax != def.RecentImagesMax || cfg.ExportHistoryMax != def.ExportHistoryMax {
		t.Errorf("limits = %d/%d, want %d/%d", cfg.RecentImagesMax, cfg.ExportHistoryMax, def.RecentImagesMax, def.ExportHistoryMax)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"recent_images_max": 3, "storage_key": "alt", "log_level": " DEBUG "}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RecentImagesMax != 3 {
		t.Errorf("RecentImagesMax = %d, want 3", cfg.RecentImagesMax)
	}
	if cfg.ExportHistoryMax != 50 {
		t.Errorf("ExportHistoryMax = %d, want default 50", cfg.ExportHistoryMax)
	}
	if cfg.StorageKey != "alt" {
		t.Errorf("StorageKey = %q, want alt", cfg.StorageKey)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{not json}`)

	if _, err := Load(dir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"disabled_tools": ["store_clear", " store_clear ", "meme_delete"]}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v, want 2 entries", cfg.DisabledTools)
	}
	if cfg.DisabledTools[0] != "store_clear" || cfg.DisabledTools[1] != "meme_delete" {
		t.Errorf("DisabledTools = %v", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeConfig(t, globalDir, `{"export_history_max": 20, "allow_unsafe_paths": true, "disabled_tools": ["store_clear"]}`)
	writeConfig(t, filepath.Join(repoRoot, DirName), `{"export_history_max": 5, "disabled_tools": ["meme_delete"]}`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.ExportHistoryMax != 5 {
		t.Errorf("ExportHistoryMax = %d, want 5 (repo override)", cfg.ExportHistoryMax)
	}
	if !cfg.AllowUnsafePaths {
		t.Error("AllowUnsafePaths = false, want true from global")
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want merged", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_NestedStartDir(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()
	writeConfig(t, filepath.Join(repoRoot, DirName), `{"storage_key": "repo-key"}`)

	nested := filepath.Join(repoRoot, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, nested)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.StorageKey != "repo-key" {
		t.Errorf("StorageKey = %q, want repo-key", cfg.StorageKey)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.StorageKey != DefaultConfig().StorageKey {
		t.Errorf("StorageKey = %q, want default", cfg.StorageKey)
	}
}

func TestLoadWithRepo_InvalidRepoConfig(t *testing.T) {
	repoRoot := t.TempDir()
	writeConfig(t, filepath.Join(repoRoot, DirName), `[`)

	if _, err := LoadWithRepo(t.TempDir(), repoRoot); err == nil {
		t.Fatal("LoadWithRepo() expected error for invalid repo config")
	}
}

func TestFindRepoConfig(t *testing.T) {
	if got := FindRepoConfig(""); got != "" {
		t.Errorf("FindRepoConfig(\"\") = %q, want empty", got)
	}

	root := t.TempDir()
	if got := FindRepoConfig(root); got != "" {
		t.Errorf("FindRepoConfig() = %q, want empty", got)
	}

	writeConfig(t, filepath.Join(root, DirName), `{}`)
	want := filepath.Join(root, DirName, "config.json")
	if got := FindRepoConfig(root); got != want {
		t.Errorf("FindRepoConfig() = %q, want %q", got, want)
	}
}

func TestMerge(t *testing.T) {
	base := &Config{StorageKey: "a", RecentImagesMax: 10, AllowedPaths: []string{"/x"}}
	overlay := &Config{RecentImagesMax: 4, AllowedPaths: []string{"/x", "/y"}}

	got := Merge(base, overlay)
	if got.StorageKey != "a" {
		t.Errorf("StorageKey = %q, want a", got.StorageKey)
	}
	if got.RecentImagesMax != 4 {
		t.Errorf("RecentImagesMax = %d, want 4", got.RecentImagesMax)
	}
	if len(got.AllowedPaths) != 2 {
		t.Errorf("AllowedPaths = %v, want [/x /y]", got.AllowedPaths)
	}
	if base.RecentImagesMax != 10 {
		t.Error("Merge mutated base")
	}
}

func TestMergeStringSlice_Empty(t *testing.T) {
	if got := mergeStringSlice(nil, []string{" ", ""}); got != nil {
		t.Errorf("mergeStringSlice() = %v, want nil", got)
	}
}
