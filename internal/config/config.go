package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port string `yaml:"port"`
		Mode string `yaml:"mode"` // gin mode: "debug" or "release"
	} `yaml:"server"`

	Database struct {
		Driver     string `yaml:"driver"` // "sqlite" or "postgres"
		DSN        string `yaml:"dsn"`    // file path (sqlite) or connection URL (postgres)
		Migrations string `yaml:"migrations"`
	} `yaml:"database"`

	Analysis struct {
		Workers            int `yaml:"workers"`
		QueueSize          int `yaml:"queue_size"`
		KeywordsPerMessage int `yaml:"keywords_per_message"`
		FailedLineSample   int `yaml:"failed_line_sample"`
	} `yaml:"analysis"`

	Parser struct {
		DateOrder     string   `yaml:"date_order"` // "mdy" or "dmy"
		SystemSenders []string `yaml:"system_senders"`
		SystemMarkers []string `yaml:"system_markers"`
	} `yaml:"parser"`

	Language struct {
		Default       string  `yaml:"default"`
		MinConfidence float64 `yaml:"min_confidence"`
	} `yaml:"language"`

	Oracles struct {
		Weights             map[string]float64 `yaml:"weights"`
		DisagreementPenalty float64            `yaml:"disagreement_penalty"`

		Contextual struct {
			Enabled   bool    `yaml:"enabled"`
			Model     string  `yaml:"model"`
			Weight    float64 `yaml:"weight"`
			APIKeyEnv string  `yaml:"api_key_env"`
		} `yaml:"contextual"`
	} `yaml:"oracles"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnvOverrides()

	return config, nil
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	config.applyEnvOverrides()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./data/chatlens.db"
	}
	if c.Database.Migrations == "" {
		c.Database.Migrations = "migrations"
	}

	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 4
	}
	if c.Analysis.QueueSize == 0 {
		c.Analysis.QueueSize = 64
	}
	if c.Analysis.KeywordsPerMessage == 0 {
		c.Analysis.KeywordsPerMessage = 3
	}
	if c.Analysis.FailedLineSample == 0 {
		c.Analysis.FailedLineSample = 10
	}

	if c.Parser.DateOrder == "" {
		c.Parser.DateOrder = "mdy"
	}
	if len(c.Parser.SystemSenders) == 0 {
		c.Parser.SystemSenders = []string{"system", "you", "group notification"}
	}
	if len(c.Parser.SystemMarkers) == 0 {
		c.Parser.SystemMarkers = []string{"secured", "created group", "changed", "left group", "added"}
	}

	if c.Language.Default == "" {
		c.Language.Default = "en"
	}
	if c.Language.MinConfidence == 0 {
		c.Language.MinConfidence = 0.25
	}

	if len(c.Oracles.Weights) == 0 {
		c.Oracles.Weights = map[string]float64{
			"vader":   0.6,
			"pattern": 0.4,
		}
	}
	if c.Oracles.DisagreementPenalty == 0 {
		c.Oracles.DisagreementPenalty = 0.5
	}
	if c.Oracles.Contextual.Model == "" {
		c.Oracles.Contextual.Model = "gpt-4o-mini"
	}
	if c.Oracles.Contextual.Weight == 0 {
		c.Oracles.Contextual.Weight = 0.2
	}
	if c.Oracles.Contextual.APIKeyEnv == "" {
		c.Oracles.Contextual.APIKeyEnv = "OPENAI_API_KEY"
	}
}

func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("CHATLENS_DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if port := os.Getenv("CHATLENS_PORT"); port != "" {
		c.Server.Port = port
	}
}

// ContextualAPIKey resolves the contextual oracle key from the configured
// environment variable.
func (c *Config) ContextualAPIKey() string {
	return os.Getenv(c.Oracles.Contextual.APIKeyEnv)
}
