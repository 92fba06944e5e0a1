package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// MirrorCap bounds the ephemeral mirror to the N most recent articles.
	MirrorCap int `json:"mirror_cap,omitempty"`

	// MirrorAddr is the redis address for the mirror tier ("host:port").
	// Empty disables the mirror; the store then runs durable+remote only.
	MirrorAddr string `json:"mirror_addr,omitempty"`

	// MirrorKey is the redis key holding the mirrored article window.
	MirrorKey string `json:"mirror_key,omitempty"`

	// SupabaseURL and SupabaseKey configure the remote authoritative tier.
	// Empty URL disables the remote tier; the store remains fully usable
	// offline.
	SupabaseURL string `json:"supabase_url,omitempty"`
	SupabaseKey string `json:"supabase_key,omitempty"`

	// NewsTable and SnapshotsTable are the remote table names.
	NewsTable      string `json:"news_table,omitempty"`
	SnapshotsTable string `json:"snapshots_table,omitempty"`

	// GeminiAPIKey authenticates embedding and generation calls.
	// The GEMINI_API_KEY environment variable takes precedence.
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`

	// EmbedModel and GenerateModel select the external service models.
	EmbedModel    string `json:"embed_model,omitempty"`
	GenerateModel string `json:"generate_model,omitempty"`

	// EmbedDelayMS is the fixed pause between embedding calls during
	// batch indexing (quota discipline against the external service).
	EmbedDelayMS int `json:"embed_delay_ms,omitempty"`

	// SearchTopK is the default result count for semantic search.
	SearchTopK int `json:"search_top_k,omitempty"`

	// AutoSnapshotEvery takes an automatic snapshot after every N newly
	// ingested articles. 0 disables auto-snapshots.
	AutoSnapshotEvery int `json:"auto_snapshot_every,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MirrorCap:      300,
		MirrorKey:      "truepress:blackbox",
		NewsTable:      "news",
		SnapshotsTable: "snapshots",
		EmbedModel:     "gemini-embedding-001",
		GenerateModel:  "gemini-2.5-flash",
		EmbedDelayMS:   200,
		SearchTopK:     5,
	}
}

// APIKey resolves the Gemini API key, preferring the environment.
func (c *Config) APIKey() string {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key
	}
	return c.GeminiAPIKey
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of
// ~/.truepress.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
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

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and
// deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.MirrorCap = pickInt(base.MirrorCap, overlay.MirrorCap)
	result.EmbedDelayMS = pickInt(base.EmbedDelayMS, overlay.EmbedDelayMS)
	result.SearchTopK = pickInt(base.SearchTopK, overlay.SearchTopK)
	result.AutoSnapshotEvery = pickInt(base.AutoSnapshotEvery, overlay.AutoSnapshotEvery)
	result.DBMaxOpenConns = pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	result.MirrorAddr = pickString(base.MirrorAddr, overlay.MirrorAddr)
	result.MirrorKey = pickString(base.MirrorKey, overlay.MirrorKey)
	result.SupabaseURL = pickString(base.SupabaseURL, overlay.SupabaseURL)
	result.SupabaseKey = pickString(base.SupabaseKey, overlay.SupabaseKey)
	result.NewsTable = pickString(base.NewsTable, overlay.NewsTable)
	result.SnapshotsTable = pickString(base.SnapshotsTable, overlay.SnapshotsTable)
	result.GeminiAPIKey = pickString(base.GeminiAPIKey, overlay.GeminiAPIKey)
	result.EmbedModel = pickString(base.EmbedModel, overlay.EmbedModel)
	result.GenerateModel = pickString(base.GenerateModel, overlay.GenerateModel)

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(base, overlay string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes
// duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
