package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{
		"FMP_API_KEY", "FRED_API_KEY",
		"SMARTVALUE_PROVIDERS_FMP_API_KEY", "SMARTVALUE_PROVIDERS_FRED_API_KEY",
	} {
		t.Setenv(e, "")
		os.Unsetenv(e)
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Collector.Source != "yq" {
		t.Errorf("Collector.Source: got %q, want %q", cfg.Collector.Source, "yq")
	}
	if cfg.Collector.BatchSize != 3 {
		t.Errorf("Collector.BatchSize: got %d, want 3", cfg.Collector.BatchSize)
	}
	if cfg.Collector.MaxRetries != 2 {
		t.Errorf("Collector.MaxRetries: got %d, want 2", cfg.Collector.MaxRetries)
	}
	if cfg.Collector.RetryCooldown != 60*time.Second {
		t.Errorf("Collector.RetryCooldown: got %s, want 60s", cfg.Collector.RetryCooldown)
	}
	if cfg.Collector.MinBatchDelay != 15*time.Second || cfg.Collector.MaxBatchDelay != 90*time.Second {
		t.Errorf("batch delay: got [%s, %s], want [15s, 90s]", cfg.Collector.MinBatchDelay, cfg.Collector.MaxBatchDelay)
	}
	if cfg.Normalize.PreserveNulls {
		t.Error("Normalize.PreserveNulls should be false by default")
	}
	if cfg.Store.Backend != "json" {
		t.Errorf("Store.Backend: got %q, want json", cfg.Store.Backend)
	}
	if filepath.Base(cfg.Export.Path) != "screener_summary.csv" {
		t.Errorf("Export.Path: got %q", cfg.Export.Path)
	}
	if cfg.Macro.RiskFreeUS != 0.08 || cfg.Macro.RiskFreeCN != 0.06 || cfg.Macro.RiskFreeHK != 0.08 {
		t.Errorf("macro defaults: got %+v", cfg.Macro)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
collector:
  source: yf
  batch_size: 5
  max_retries: 1
  retry_cooldown: 10s
  min_batch_delay: 1s
  max_batch_delay: 2s
normalize:
  preserve_nulls: true
store:
  backend: badger
  dir: /tmp/records
providers:
  fmp_api_key: fmp-from-file-123456
logging:
  level: debug
  format: json
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	if cfg.Collector.Source != "yf" {
		t.Errorf("Collector.Source: got %q, want yf", cfg.Collector.Source)
	}
	if cfg.Collector.BatchSize != 5 {
		t.Errorf("Collector.BatchSize: got %d, want 5", cfg.Collector.BatchSize)
	}
	if cfg.Collector.RetryCooldown != 10*time.Second {
		t.Errorf("Collector.RetryCooldown: got %s, want 10s", cfg.Collector.RetryCooldown)
	}
	if !cfg.Normalize.PreserveNulls {
		t.Error("Normalize.PreserveNulls should be true")
	}
	if cfg.Store.Backend != "badger" {
		t.Errorf("Store.Backend: got %q, want badger", cfg.Store.Backend)
	}
	if cfg.Providers.FMPAPIKey != "fmp-from-file-123456" {
		t.Errorf("Providers.FMPAPIKey: got %q", cfg.Providers.FMPAPIKey)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want json", cfg.Logging.Format)
	}
	// Untouched sections keep their defaults.
	if cfg.Macro.Source != "live" {
		t.Errorf("Macro.Source: got %q, want live", cfg.Macro.Source)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	clearKeyEnv(t)
	cases := map[string]string{
		"zero batch":       "collector:\n  batch_size: 0\n",
		"inverted delays":  "collector:\n  min_batch_delay: 90s\n  max_batch_delay: 15s\n",
		"unknown backend":  "store:\n  backend: sqlite\n",
		"unknown macro":    "macro:\n  source: oracle\n",
		"negative retries": "collector:\n  max_retries: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFromFile(path); err == nil {
				t.Errorf("expected validation error for %s", name)
			}
		})
	}
}

func TestEnvOverridesSection(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("SMARTVALUE_COLLECTOR_BATCH_SIZE", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Collector.BatchSize != 7 {
		t.Errorf("Collector.BatchSize: got %d, want 7", cfg.Collector.BatchSize)
	}
}

func TestOverrideFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("FMP_API_KEY", "fmp-env-key-123456")
	t.Setenv("FRED_API_KEY", "fred-env-key-123456")

	cfg := &Config{}
	overrideFromEnv(cfg)

	if cfg.Providers.FMPAPIKey != "fmp-env-key-123456" {
		t.Errorf("FMPAPIKey: got %q", cfg.Providers.FMPAPIKey)
	}
	if cfg.Providers.FREDAPIKey != "fred-env-key-123456" {
		t.Errorf("FREDAPIKey: got %q", cfg.Providers.FREDAPIKey)
	}
}

func TestDotEnvIsLoaded(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FRED_API_KEY=fred-dotenv-key-42\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FRED_API_KEY") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Providers.FREDAPIKey != "fred-dotenv-key-42" {
		t.Errorf("FREDAPIKey: got %q, want value from .env", cfg.Providers.FREDAPIKey)
	}
}

// ── Key masking ──

func TestMaskKeyShort(t *testing.T) {
	for _, k := range []string{"", "abc", "12345678"} {
		if got := maskKey(k); got != "***" {
			t.Errorf("maskKey(%q) = %q, want ***", k, got)
		}
	}
}

func TestMaskKeyLong(t *testing.T) {
	if got := maskKey("abcdefghijkl"); got != "abc...jkl" {
		t.Errorf("maskKey = %q, want abc...jkl", got)
	}
}

func TestCheckAPIKeys(t *testing.T) {
	clearKeyEnv(t)
	cfg := &Config{Providers: ProvidersConfig{FMPAPIKey: "config-fmp-key-123"}}

	keys := CheckAPIKeys(cfg)
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if !keys[0].IsSet || keys[0].Source != KeySourceConfig {
		t.Errorf("FMP key: got %+v, want set from config", keys[0])
	}
	if keys[1].IsSet || keys[1].Source != KeySourceNone {
		t.Errorf("FRED key: got %+v, want unset", keys[1])
	}

	t.Setenv("FMP_API_KEY", "config-fmp-key-123")
	keys = CheckAPIKeys(cfg)
	if keys[0].Source != KeySourceEnv {
		t.Errorf("FMP key source: got %q, want env", keys[0].Source)
	}
}
