package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the directory that holds memebox state, both under the home
// directory (global) and at a repository root (repo-level overrides).
const DirName = ".memebox"

// Config holds application configuration.
type Config struct {
	// StorageKey names the durable snapshot row in the database.
	StorageKey string `json:"storage_key,omitempty"`

	// RecentImagesMax caps the recent images list.
	RecentImagesMax int `json:"recent_images_max,omitempty"`

	// ExportHistoryMax caps the export history.
	ExportHistoryMax int `json:"export_history_max,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// WebAddr is the listen address of the web gallery.
	WebAddr string `json:"web_addr,omitempty"`

	// AllowedPaths is an allowlist of directories for backup/restore files.
	// Paths outside ~/.memebox/backups require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for backup/restore.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits open database connections. 0 keeps the sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits idle database connections. 0 keeps the sql.DB default.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools lists MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StorageKey:       "meme-store",
		RecentImagesMax:  10,
		ExportHistoryMax: 50,
		LogLevel:         "info",
		WebAddr:          "127.0.0.1:8420",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// Tests pass t.TempDir() in place of ~/.memebox.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo loads the global config from globalDir, then the nearest repo
// config found by walking upward from startDir. Repo values win for scalars;
// arrays are merged and deduplicated. Either file may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}
	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to the nearest .memebox/config.json.
// Returns "" if there is none.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		p := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero Config (not defaults) when path is empty or missing.
func loadFileRaw(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge combines base and overlay. Non-zero overlay scalars win, booleans are
// OR-ed, arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		StorageKey:       pick(overlay.StorageKey, base.StorageKey),
		RecentImagesMax:  pick(overlay.RecentImagesMax, base.RecentImagesMax),
		ExportHistoryMax: pick(overlay.ExportHistoryMax, base.ExportHistoryMax),
		LogLevel:         pick(strings.ToLower(strings.TrimSpace(overlay.LogLevel)), base.LogLevel),
		WebAddr:          pick(overlay.WebAddr, base.WebAddr),
		DBMaxOpenConns:   pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:   pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		AllowUnsafePaths: base.AllowUnsafePaths || overlay.AllowUnsafePaths,
		AllowedPaths:     mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths),
		DisabledTools:    mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
	}
}

func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
