package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/partwatch/tracker"
)

// FileConfig is the optional YAML configuration. Environment variables
// override file values; built-in defaults cover the rest.
type FileConfig struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	UserAgent string `yaml:"user_agent"`

	Scrape struct {
		DelaySeconds   int  `yaml:"delay_seconds"`
		JitterSeconds  int  `yaml:"jitter_seconds"`
		TimeoutSeconds int  `yaml:"timeout_seconds"`
		MaxFailures    int  `yaml:"max_failures"`
		Hour           int  `yaml:"hour"`
		Minute         int  `yaml:"minute"`
		Production     bool `yaml:"production"`
		Browser        bool `yaml:"browser"`
	} `yaml:"scrape"`

	// Targets are seeded into the registry at startup. Duplicates are
	// skipped, so the list can stay in the file across restarts.
	Targets []SeedTarget `yaml:"targets"`
}

// SeedTarget is one registry entry declared in the config file.
type SeedTarget struct {
	URL      string `yaml:"url"`
	Source   string `yaml:"source"`
	Category string `yaml:"category"`
	Brand    string `yaml:"brand"`
	Render   string `yaml:"render"`
}

func loadConfig(path string) (*FileConfig, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *FileConfig) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v, ok := envInt("SCRAPE_DELAY_SECONDS"); ok {
		c.Scrape.DelaySeconds = v
	}
	if v, ok := envInt("SCRAPE_JITTER_SECONDS"); ok {
		c.Scrape.JitterSeconds = v
	}
	if v, ok := envInt("SCRAPE_TIMEOUT_SECONDS"); ok {
		c.Scrape.TimeoutSeconds = v
	}
	if v, ok := envInt("SCRAPE_MAX_FAILURES"); ok {
		c.Scrape.MaxFailures = v
	}
	if os.Getenv("PRODUCTION") == "true" {
		c.Scrape.Production = true
	}
	if os.Getenv("SCRAPE_BROWSER") == "true" {
		c.Scrape.Browser = true
	}
}

func (c *FileConfig) applyDefaults() {
	if c.Port == "" {
		c.Port = "8086"
	}
	if c.DBPath == "" {
		c.DBPath = "db/partwatch.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// trackerConfig maps the file settings onto the service configuration.
func (c *FileConfig) trackerConfig() *tracker.Config {
	cfg := &tracker.Config{
		BaseDelay:        time.Duration(c.Scrape.DelaySeconds) * time.Second,
		MaxJitter:        time.Duration(c.Scrape.JitterSeconds) * time.Second,
		FailureThreshold: c.Scrape.MaxFailures,
		Production:       c.Scrape.Production,
	}
	cfg.Fetch.Timeout = time.Duration(c.Scrape.TimeoutSeconds) * time.Second
	cfg.Fetch.UserAgent = c.UserAgent
	cfg.Scheduler.Hour = c.Scrape.Hour
	cfg.Scheduler.Minute = c.Scrape.Minute
	return cfg
}

func envInt(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
