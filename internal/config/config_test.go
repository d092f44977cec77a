package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", mutate: func(c *Config) {}, wantErr: false},
		{name: "zero cache size", mutate: func(c *Config) { c.MaxCacheSize = 0 }, wantErr: true},
		{name: "negative preload", mutate: func(c *Config) { c.PreloadCount = -1 }, wantErr: true},
		{name: "threshold out of range", mutate: func(c *Config) { c.SimilarityThreshold = 1.5 }, wantErr: true},
		{name: "cutoff out of range", mutate: func(c *Config) { c.RelativeScoreCutoff = -0.1 }, wantErr: true},
		{name: "zero history window", mutate: func(c *Config) { c.MaxHistoryTurns = 0 }, wantErr: true},
		{name: "zero max steps", mutate: func(c *Config) { c.MaxSteps = 0 }, wantErr: true},
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")

	cfg := DefaultConfig()
	cfg.MaxCacheSize = 16
	cfg.KeywordNudge = []NudgeRule{
		{Category: "finance", Keywords: []string{"stock", "ticker"}, DiscoveryQueries: []string{"stock price lookup"}},
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if st.Size() == 0 {
		t.Fatal("saved config file is empty")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.MaxCacheSize != 16 {
		t.Fatalf("expected MaxCacheSize=16, got %d", loaded.MaxCacheSize)
	}
	if len(loaded.KeywordNudge) != 1 || loaded.KeywordNudge[0].Category != "finance" {
		t.Fatalf("expected keyword_nudge to round-trip, got %+v", loaded.KeywordNudge)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxCacheSize != DefaultConfig().MaxCacheSize {
		t.Fatalf("expected default config on missing file, got %+v", cfg)
	}
}
