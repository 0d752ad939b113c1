package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Countries []string  `yaml:"countries"`
	Collect   Collect   `yaml:"collect"`
	Inference Inference `yaml:"inference"`
	Analysis  Analysis  `yaml:"analysis"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Collect struct {
	Limit int `yaml:"limit"`
}

type Inference struct {
	URL            string `yaml:"url"`
	SentimentModel string `yaml:"sentiment_model"`
	KeywordModel   string `yaml:"keyword_model"`
	BatchSize      int    `yaml:"batch_size"`
	Workers        int    `yaml:"workers"`
}

type Analysis struct {
	TopN int `yaml:"top_n"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for reviewlens.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "reviewlens")
}

// DataDir returns the XDG data directory for reviewlens.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "reviewlens")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/reviewlens/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'reviewlens init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Collect: Collect{Limit: 500},
		Inference: Inference{
			URL:            "http://localhost:8600",
			SentimentModel: "cardiffnlp/twitter-roberta-base-sentiment-latest",
			KeywordModel:   "all-MiniLM-L6-v2",
			BatchSize:      32,
			Workers:        4,
		},
		Analysis: Analysis{TopN: 50},
		Server:   Server{Port: 8000},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Countries) == 0 {
		cfg.Countries = []string{"us"}
	}
	if cfg.Inference.BatchSize < 1 {
		cfg.Inference.BatchSize = 32
	}
	if cfg.Inference.Workers < 1 {
		cfg.Inference.Workers = 1
	}
	if cfg.Analysis.TopN < 1 {
		cfg.Analysis.TopN = 50
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "reviewlens.db")
}

// RawDir returns the raw-review directory for a country.
// Stages receive concrete locations through these path methods so none of
// them builds data-directory layout on its own.
func (c *Config) RawDir(country string) string {
	return filepath.Join(c.GetDataDir(), "raw", country)
}

// RawGlob returns the glob matching every country's raw file for an app.
func (c *Config) RawGlob(appID int64) string {
	return filepath.Join(c.GetDataDir(), "raw", "*", fmt.Sprintf("app_%d_reviews_*.json", appID))
}

// ProcessedPath returns the cleaned-reviews file for an app.
func (c *Config) ProcessedPath(appID int64) string {
	id := strconv.FormatInt(appID, 10)
	return filepath.Join(c.GetDataDir(), "processed", id, "cleaned_"+id+".json")
}

// MetricsDir returns the rating-metrics output directory for an app.
func (c *Config) MetricsDir(appID int64) string {
	return filepath.Join(c.GetDataDir(), "metrics", strconv.FormatInt(appID, 10))
}

// InsightsDir returns the NLP-insights output directory for an app.
func (c *Config) InsightsDir(appID int64) string {
	return filepath.Join(c.GetDataDir(), "insights", strconv.FormatInt(appID, 10))
}

// ReportsDir returns the markdown-report directory for an app.
func (c *Config) ReportsDir(appID int64) string {
	return filepath.Join(c.GetDataDir(), "reports", strconv.FormatInt(appID, 10))
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
