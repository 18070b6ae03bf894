package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings ("5m", "1h30m") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

const (
	configPathEnv    = "COPYWATCH_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	listenAddrEnv    = "COPYWATCH_LISTEN_ADDR"
	scoringURLEnv    = "SCORING_API_URL"
	scoringKeyEnv    = "SCORING_API_KEY"
	comparisonURLEnv = "COMPARISON_API_URL"
)

// Config holds high-level settings required across the application.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Comparison ComparisonConfig `yaml:"comparison"`
	Review     ReviewConfig     `yaml:"review"`
	Logging    LoggingConfig    `yaml:"logging"`
	Wikis      []WikiConfig     `yaml:"wikis"`
}

// HTTPConfig describes the listening socket of the JSON boundary.
type HTTPConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// DatabaseConfig describes the central record store connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ScoringConfig defines how to contact the plagiarism-likelihood service.
type ScoringConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	// DisplayThreshold hides scores at or below this value from reviewers.
	// The default of 0.427 is a tunable inherited from the scoring service
	// operators, not a derived value.
	DisplayThreshold float64  `yaml:"displayThreshold"`
	CacheTTL         Duration `yaml:"cacheTtl"`
}

// ComparisonConfig defines how to reach the external comparison viewer.
type ComparisonConfig struct {
	Endpoint string `yaml:"endpoint"`
	Project  string `yaml:"project"`
}

// ReviewConfig groups settings of the review state machine.
type ReviewConfig struct {
	// BotUser is the system actor recorded on auto-dismissed records.
	BotUser string `yaml:"botUser"`
	// Privileged actors may undo reviews made by anyone.
	Privileged        []string `yaml:"privileged"`
	WhitelistCacheTTL Duration `yaml:"whitelistCacheTtl"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WikiConfig describes a single wiki with its replica connection.
type WikiConfig struct {
	Lang       string `yaml:"lang"`
	Domain     string `yaml:"domain"`
	ReplicaDSN string `yaml:"replicaDsn"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Wikis) == 0 {
		cfg.Wikis = defaultConfig().Wikis
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(listenAddrEnv); v != "" {
		c.HTTP.ListenAddr = v
	}

	if v := os.Getenv(scoringURLEnv); v != "" {
		c.Scoring.Endpoint = v
	}

	if v := os.Getenv(scoringKeyEnv); v != "" {
		c.Scoring.APIKey = v
	}

	if v := os.Getenv(comparisonURLEnv); v != "" {
		c.Comparison.Endpoint = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.HTTP.ListenAddr != "" {
		base.HTTP = override.HTTP
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scoring.Endpoint != "" {
		base.Scoring.Endpoint = override.Scoring.Endpoint
	}
	if override.Scoring.APIKey != "" {
		base.Scoring.APIKey = override.Scoring.APIKey
	}
	if override.Scoring.DisplayThreshold > 0 {
		base.Scoring.DisplayThreshold = override.Scoring.DisplayThreshold
	}
	if override.Scoring.CacheTTL > 0 {
		base.Scoring.CacheTTL = override.Scoring.CacheTTL
	}

	if override.Comparison.Endpoint != "" {
		base.Comparison.Endpoint = override.Comparison.Endpoint
	}
	if override.Comparison.Project != "" {
		base.Comparison.Project = override.Comparison.Project
	}

	if override.Review.BotUser != "" {
		base.Review.BotUser = override.Review.BotUser
	}
	if len(override.Review.Privileged) > 0 {
		base.Review.Privileged = override.Review.Privileged
	}
	if override.Review.WhitelistCacheTTL > 0 {
		base.Review.WhitelistCacheTTL = override.Review.WhitelistCacheTTL
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.Wikis) > 0 {
		base.Wikis = override.Wikis
	}

	return base
}

func defaultConfig() Config {
	return Config{
		HTTP:     HTTPConfig{ListenAddr: ":8080"},
		Database: DatabaseConfig{DSN: "copywatch:copywatch@tcp(localhost:3306)/copywatch?parseTime=true"},
		Scoring: ScoringConfig{
			Endpoint:         "https://scores.example.org/v1/scores",
			DisplayThreshold: 0.427,
			CacheTTL:         Duration(10 * time.Minute),
		},
		Comparison: ComparisonConfig{
			Endpoint: "https://copyvios.toolforge.org/api.json",
			Project:  "wikipedia",
		},
		Review: ReviewConfig{
			BotUser:           "Copywatch bot",
			WhitelistCacheTTL: Duration(5 * time.Minute),
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Wikis: []WikiConfig{
			{
				Lang:       "en",
				Domain:     "en.wikipedia.org",
				ReplicaDSN: "copywatch:copywatch@tcp(localhost:3306)/enwiki?parseTime=true",
			},
		},
	}
}
