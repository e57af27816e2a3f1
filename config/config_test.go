package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Batch.Concurrency != 40 {
		t.Errorf("expected Concurrency=40, got %d", cfg.Batch.Concurrency)
	}
	if cfg.Batch.FlushEvery != 50 {
		t.Errorf("expected FlushEvery=50, got %d", cfg.Batch.FlushEvery)
	}
	if cfg.Server.ProductLimit != 1000 {
		t.Errorf("expected ProductLimit=1000, got %d", cfg.Server.ProductLimit)
	}
	if cfg.Census.Year != "2024" {
		t.Errorf("expected Year=2024, got %s", cfg.Census.Year)
	}
	if cfg.Census.APIKeyEnv != "CENSUS_API_KEY" {
		t.Errorf("expected APIKeyEnv=CENSUS_API_KEY, got %s", cfg.Census.APIKeyEnv)
	}
	if cfg.Scoring.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("expected APIKeyEnv=OPENAI_API_KEY, got %s", cfg.Scoring.APIKeyEnv)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tradelens.yaml")

	content := `
batch:
  concurrency: 8
  flush_every: 10
census:
  year: "2023"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Batch.Concurrency != 8 {
		t.Errorf("expected Concurrency=8, got %d", cfg.Batch.Concurrency)
	}
	if cfg.Batch.FlushEvery != 10 {
		t.Errorf("expected FlushEvery=10, got %d", cfg.Batch.FlushEvery)
	}
	if cfg.Census.Year != "2023" {
		t.Errorf("expected Year=2023, got %s", cfg.Census.Year)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected Addr=:8000, got %s", cfg.Server.Addr)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tradelens.yaml")

	content := `
server:
  addr: ":9001"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":9001" {
		t.Errorf("expected Addr=:9001, got %s", cfg.Server.Addr)
	}
}

func TestArtifactPaths(t *testing.T) {
	cfg := DefaultConfig()
	paths := cfg.ArtifactPaths("/root/project")

	if paths.TradeDeficit != "/root/project/data/trade_deficit.json" {
		t.Errorf("unexpected trade deficit path: %s", paths.TradeDeficit)
	}
	if paths.TradeErrors != "/root/project/tmp/trade_deficit_errors.json" {
		t.Errorf("unexpected trade errors path: %s", paths.TradeErrors)
	}

	cfg.Data.TradeDeficit = "/abs/trade.json"
	paths = cfg.ArtifactPaths("/root/project")
	if paths.TradeDeficit != "/abs/trade.json" {
		t.Errorf("absolute path should pass through, got %s", paths.TradeDeficit)
	}
}
