package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "FEED_SCREENER_CONFIG"
	dbPathEnv     = "FEED_SCREENER_DB"
	preferenceEnv = "FEED_SCREENER_PREFERENCE"
	apiKeyEnv     = "SCORER_API_KEY"
	modelEnv      = "SCORER_MODEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig    `yaml:"logging"`
	Scoring   ScoringConfig    `yaml:"scoring"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
	Feeds     []FeedConfig     `yaml:"feeds"`
	Discovery DiscoveryConfig  `yaml:"discovery"`
	Storage   StorageConfig    `yaml:"storage"`
}

// LoggingConfig controls console output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ScoringConfig defines the preference, policy, and dispatch timing.
type ScoringConfig struct {
	Preference        string `yaml:"preference"`
	Strictness        int    `yaml:"strictness"`
	CooldownMs        int    `yaml:"cooldownMs"`
	ThrottlePenaltyMs int    `yaml:"throttlePenaltyMs"`
	ErrorCooldownMs   int    `yaml:"errorCooldownMs"`
	DebounceMs        int    `yaml:"debounceMs"`
}

// Cooldown is the shared per-endpoint dispatch window.
func (s ScoringConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownMs) * time.Millisecond
}

// ThrottlePenalty extends a throttled endpoint's cooldown.
func (s ScoringConfig) ThrottlePenalty() time.Duration {
	return time.Duration(s.ThrottlePenaltyMs) * time.Millisecond
}

// ErrorCooldown gates re-submission after a failed batch.
func (s ScoringConfig) ErrorCooldown() time.Duration {
	return time.Duration(s.ErrorCooldownMs) * time.Millisecond
}

// Debounce is the quiet window coalescing discovery signals.
func (s ScoringConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// EndpointConfig describes one interchangeable scoring backend.
type EndpointConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"apiKey"`
}

// SelectorConfig holds the CSS selectors used to extract items from a
// feed listing page.
type SelectorConfig struct {
	Item     string `yaml:"item"`
	Title    string `yaml:"title"`
	Channel  string `yaml:"channel"`
	Duration string `yaml:"duration"`
	Metadata string `yaml:"metadata"`
}

// FeedConfig describes a single feed with its scanner strategy.
type FeedConfig struct {
	Name      string            `yaml:"name"`
	Scanner   string            `yaml:"scanner"`
	URL       string            `yaml:"url"`
	Selectors SelectorConfig    `yaml:"selectors"`
	Options   map[string]string `yaml:"options"`
}

// DiscoveryConfig defines how often feeds are re-polled.
type DiscoveryConfig struct {
	PollIntervalSec int `yaml:"pollIntervalSec"`
}

// PollInterval resolves the polling cadence.
func (d DiscoveryConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalSec) * time.Second
}

// StorageConfig points at the optional sqlite session store. An empty
// path disables persistence; a fresh cache after restart is fine.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
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

	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = defaultConfig().Endpoints
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Storage.Path = v
	}

	if v := os.Getenv(preferenceEnv); v != "" {
		c.Scoring.Preference = v
	}

	if v := os.Getenv(apiKeyEnv); v != "" {
		for i := range c.Endpoints {
			if c.Endpoints[i].APIKey == "" {
				c.Endpoints[i].APIKey = v
			}
		}
	}

	if v := os.Getenv(modelEnv); v != "" {
		for i := range c.Endpoints {
			c.Endpoints[i].Model = v
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Scoring.Preference != "" {
		base.Scoring.Preference = override.Scoring.Preference
	}
	if override.Scoring.Strictness != 0 {
		base.Scoring.Strictness = override.Scoring.Strictness
	}
	if override.Scoring.CooldownMs != 0 {
		base.Scoring.CooldownMs = override.Scoring.CooldownMs
	}
	if override.Scoring.ThrottlePenaltyMs != 0 {
		base.Scoring.ThrottlePenaltyMs = override.Scoring.ThrottlePenaltyMs
	}
	if override.Scoring.ErrorCooldownMs != 0 {
		base.Scoring.ErrorCooldownMs = override.Scoring.ErrorCooldownMs
	}
	if override.Scoring.DebounceMs != 0 {
		base.Scoring.DebounceMs = override.Scoring.DebounceMs
	}

	if len(override.Endpoints) > 0 {
		base.Endpoints = override.Endpoints
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	if override.Discovery.PollIntervalSec != 0 {
		base.Discovery = override.Discovery
	}

	if override.Storage.Path != "" {
		base.Storage = override.Storage
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Scoring: ScoringConfig{
			Strictness:        3,
			CooldownMs:        3000,
			ThrottlePenaltyMs: 10000,
			ErrorCooldownMs:   30000,
			DebounceMs:        500,
		},
		Endpoints: []EndpointConfig{
			{
				Name:  "openai-primary",
				URL:   "https://api.openai.com/v1/chat/completions",
				Model: "gpt-4o-mini",
			},
		},
		Discovery: DiscoveryConfig{PollIntervalSec: 60},
		Feeds: []FeedConfig{
			{
				Name:    "default",
				Scanner: "html",
				URL:     "",
				Selectors: SelectorConfig{
					Item:    ".feed-item",
					Title:   ".title",
					Channel: ".channel",
				},
			},
		},
	}
}
