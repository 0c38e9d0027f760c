package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir  string `yaml:"data_dir"`
	DBPath   string `yaml:"db_path"`
	HTTPAddr string `yaml:"http_addr"`

	Universe  UniverseConfig  `yaml:"universe"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Features  FeaturesConfig  `yaml:"features"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Trading   TradingConfig   `yaml:"trading"`
}

type UniverseConfig struct {
	Seed []string `yaml:"seed"`
}

type IngestionConfig struct {
	WindowDays int `yaml:"window_days"`
	MaxRetries int `yaml:"max_retries"`
	NewsDays   int `yaml:"news_days"`
}

type FeaturesConfig struct {
	WindowDays int    `yaml:"window_days"`
	Version    string `yaml:"version"`
}

type FeedbackConfig struct {
	DaysBack          int     `yaml:"days_back"`
	AccuracyThreshold float64 `yaml:"accuracy_threshold"`
}

type TradingConfig struct {
	MinConfidence float64 `yaml:"min_confidence"`
	MaxTrades     int     `yaml:"max_trades"`
	PositionSize  int     `yaml:"position_size"`
}

// New builds the config from defaults, then an optional config.yaml in the
// data dir. The data dir itself comes from NEXTGEN_DATA_DIR or ~/.nextgen.
func New() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dataDir := getEnv("NEXTGEN_DATA_DIR", filepath.Join(homeDir, ".nextgen"))

	c := defaults(dataDir)

	path := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Keep the derived path consistent when only data_dir was overridden.
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "nextgen.db")
	}

	return c, nil
}

func defaults(dataDir string) *Config {
	return &Config{
		DataDir:  dataDir,
		DBPath:   filepath.Join(dataDir, "nextgen.db"),
		HTTPAddr: ":8081",
		Universe: UniverseConfig{
			Seed: []string{"AAPL", "AMZN", "GOOGL", "MSFT", "NVDA", "TSLA"},
		},
		Ingestion: IngestionConfig{
			WindowDays: 90,
			MaxRetries: 3,
			NewsDays:   7,
		},
		Features: FeaturesConfig{
			WindowDays: 30,
			Version:    "v1",
		},
		Feedback: FeedbackConfig{
			DaysBack:          7,
			AccuracyThreshold: 0.5,
		},
		Trading: TradingConfig{
			MinConfidence: 0.6,
			MaxTrades:     5,
			PositionSize:  10,
		},
	}
}

func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
