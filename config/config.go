package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for tradelens.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Census  CensusConfig  `yaml:"census"`
	Scoring ScoringConfig `yaml:"scoring"`
	Batch   BatchConfig   `yaml:"batch"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig locates the data artifacts. All paths are relative to the
// root directory unless absolute.
type DataConfig struct {
	NAICSNames        string `yaml:"naics_names"`
	NAICSProducts     string `yaml:"naics_products"`
	TradeDeficit      string `yaml:"trade_deficit"`
	ChinaIndex        string `yaml:"china_index"`
	DefenseIndex      string `yaml:"defense_index"`
	TradeErrors       string `yaml:"trade_errors"`
	DefenseErrors     string `yaml:"defense_errors"`
	ExportConcordance string `yaml:"export_concordance"` // glob, vintage-stamped files
	ImportConcordance string `yaml:"import_concordance"` // glob
}

// CensusConfig holds settings for the Census international trade API.
type CensusConfig struct {
	ExportsURL string `yaml:"exports_url"`
	ImportsURL string `yaml:"imports_url"`
	Year       string `yaml:"year"`
	Month      string `yaml:"month"`
	APIKeyEnv  string `yaml:"api_key_env"` // Environment variable for API key
}

// ScoringConfig holds settings for the defense-criticality scorer.
type ScoringConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Rubric    string `yaml:"rubric"` // Optional system-prompt override
}

// BatchConfig controls the fetch/score batch runs.
type BatchConfig struct {
	Concurrency int    `yaml:"concurrency"` // In-flight task limit
	FlushEvery  int    `yaml:"flush_every"` // Artifact save cadence (completions)
	Checkpoint  string `yaml:"checkpoint"`  // Write-through checkpoint db path
}

// ServerConfig holds settings for the query API server.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ProductLimit int    `yaml:"product_limit"` // Default listing truncation
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			NAICSNames:        "data/mfg_naics.csv",
			NAICSProducts:     "data/naics_products.json",
			TradeDeficit:      "data/trade_deficit.json",
			ChinaIndex:        "data/china_index.json",
			DefenseIndex:      "data/defense_index.json",
			TradeErrors:       "tmp/trade_deficit_errors.json",
			DefenseErrors:     "tmp/defense_index_errors.json",
			ExportConcordance: "tmp/expconcord*.csv",
			ImportConcordance: "tmp/impconcord*.csv",
		},
		Census: CensusConfig{
			ExportsURL: "https://api.census.gov/data/timeseries/intltrade/exports/hs",
			ImportsURL: "https://api.census.gov/data/timeseries/intltrade/imports/hs",
			Year:       "2024",
			Month:      "12",
			APIKeyEnv:  "CENSUS_API_KEY",
		},
		Scoring: ScoringConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-5-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Batch: BatchConfig{
			Concurrency: 40,
			FlushEvery:  50,
			Checkpoint:  "tmp/checkpoint.db",
		},
		Server: ServerConfig{
			Addr:         ":8000",
			ProductLimit: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for tradelens.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "tradelens.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Paths holds the resolved locations of all data artifacts.
type Paths struct {
	NAICSNames        string
	NAICSProducts     string
	TradeDeficit      string
	ChinaIndex        string
	DefenseIndex      string
	TradeErrors       string
	DefenseErrors     string
	Checkpoint        string
	ExportConcordance string
	ImportConcordance string
}

// ArtifactPaths resolves the configured data paths against root.
func (c *Config) ArtifactPaths(root string) Paths {
	return Paths{
		NAICSNames:        resolve(root, c.Data.NAICSNames),
		NAICSProducts:     resolve(root, c.Data.NAICSProducts),
		TradeDeficit:      resolve(root, c.Data.TradeDeficit),
		ChinaIndex:        resolve(root, c.Data.ChinaIndex),
		DefenseIndex:      resolve(root, c.Data.DefenseIndex),
		TradeErrors:       resolve(root, c.Data.TradeErrors),
		DefenseErrors:     resolve(root, c.Data.DefenseErrors),
		Checkpoint:        resolve(root, c.Batch.Checkpoint),
		ExportConcordance: resolve(root, c.Data.ExportConcordance),
		ImportConcordance: resolve(root, c.Data.ImportConcordance),
	}
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
