package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MirrorCap != 300 {
		t.Errorf("MirrorCap = %d, want 300", cfg.MirrorCap)
	}
	if cfg.EmbedDelayMS != 200 {
		t.Errorf("EmbedDelayMS = %d, want 200", cfg.EmbedDelayMS)
	}
	if cfg.SearchTopK != 5 {
		t.Errorf("SearchTopK = %d, want 5", cfg.SearchTopK)
	}
	if cfg.MirrorKey != "truepress:blackbox" {
		t.Errorf("MirrorKey = %q, want default", cfg.MirrorKey)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	content := `{"mirror_cap": 50, "search_top_k": 10, "supabase_url": "https://example.supabase.co"}`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MirrorCap != 50 {
		t.Errorf("MirrorCap = %d, want 50", cfg.MirrorCap)
	}
	if cfg.SearchTopK != 10 {
		t.Errorf("SearchTopK = %d, want 10", cfg.SearchTopK)
	}
	if cfg.SupabaseURL != "https://example.supabase.co" {
		t.Errorf("SupabaseURL = %q, want override", cfg.SupabaseURL)
	}
	// untouched keys keep defaults
	if cfg.EmbedDelayMS != 200 {
		t.Errorf("EmbedDelayMS = %d, want 200", cfg.EmbedDelayMS)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("Load should fail on invalid JSON")
	}
}

func TestMerge_ArraysDeduplicated(t *testing.T) {
	base := &Config{DisabledTools: []string{"news_search", "store_export"}}
	overlay := &Config{DisabledTools: []string{"store_export", " news_ask "}}

	merged := Merge(base, overlay)

	want := []string{"news_search", "store_export", "news_ask"}
	if len(merged.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", merged.DisabledTools, want)
	}
	for i, s := range want {
		if merged.DisabledTools[i] != s {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, merged.DisabledTools[i], s)
		}
	}
}

func TestAPIKey_EnvWins(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	cfg := &Config{GeminiAPIKey: "file-key"}

	if got := cfg.APIKey(); got != "env-key" {
		t.Errorf("APIKey = %q, want env-key", got)
	}

	t.Setenv("GEMINI_API_KEY", "")
	if got := cfg.APIKey(); got != "file-key" {
		t.Errorf("APIKey = %q, want file-key", got)
	}
}
