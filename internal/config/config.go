// Package config loads the opinionfeed configuration from YAML, applying
// built-in defaults for anything the file leaves out.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources       Sources       `yaml:"sources"`
	Extraction    Extraction    `yaml:"extraction"`
	Summarization Summarization `yaml:"summarization"`
	Channels      Channels      `yaml:"channels"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
}

type Sources struct {
	ListingURL     string `yaml:"listing_url"`
	BaseURL        string `yaml:"base_url"`
	AtomURL        string `yaml:"atom_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxItems       int    `yaml:"max_items"`
}

type Extraction struct {
	MinContentChars int `yaml:"min_content_chars"`
	MaxPromptChars  int `yaml:"max_prompt_chars"`
}

type Summarization struct {
	Model              string  `yaml:"model"` // optional override, tried before the built-in chain
	APIVersion         string  `yaml:"api_version"`
	APIKeyEnv          string  `yaml:"api_key_env"`
	FallbackAPIKeyEnv  string  `yaml:"fallback_api_key_env"`
	MaxAttempts        int     `yaml:"max_attempts"`
	RetryMarginSeconds float64 `yaml:"retry_margin_seconds"`
	Temperature        float64 `yaml:"temperature"`
	MaxOutputTokens    int     `yaml:"max_output_tokens"`
}

// Channel is the per-document channel metadata.
type Channel struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
}

type Channels struct {
	Opinions Channel `yaml:"opinions"`
	FullText Channel `yaml:"fulltext"`
	Summary  Channel `yaml:"summary"`
}

type Output struct {
	Dir          string `yaml:"dir"`
	CachePath    string `yaml:"cache_path"`
	OpinionsFile string `yaml:"opinions_file"`
	FullTextFile string `yaml:"fulltext_file"`
	SummaryFile  string `yaml:"summary_file"`
}

type Server struct {
	Port int `yaml:"port"`
}

// APIKey resolves the generative API credential from the configured
// environment variables, primary name first.
func (s Summarization) APIKey() string {
	if key := os.Getenv(s.APIKeyEnv); key != "" {
		return key
	}
	if s.FallbackAPIKeyEnv != "" {
		return os.Getenv(s.FallbackAPIKeyEnv)
	}
	return ""
}

// RetryMargin returns the configured safety margin as a duration.
func (s Summarization) RetryMargin() time.Duration {
	return time.Duration(s.RetryMarginSeconds * float64(time.Second))
}

// Timeout returns the HTTP timeout as a duration.
func (s Sources) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// OpinionsPath returns the primary opinions document path.
func (o Output) OpinionsPath() string { return filepath.Join(o.Dir, o.OpinionsFile) }

// FullTextPath returns the full-text document path.
func (o Output) FullTextPath() string { return filepath.Join(o.Dir, o.FullTextFile) }

// SummaryPath returns the summary document path.
func (o Output) SummaryPath() string { return filepath.Join(o.Dir, o.SummaryFile) }

// ConfigDir returns the XDG config directory for opinionfeed.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "opinionfeed")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/opinionfeed/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'opinionfeed init' to create a default config",
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

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(err) // defaults are compiled in
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults first.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			ListingURL:     "https://www.law.cornell.edu/supremecourt/text",
			BaseURL:        "https://www.law.cornell.edu",
			AtomURL:        "https://www.courtlistener.com/feed/court/scotus/",
			UserAgent:      "opinionfeed/1.0 (+https://github.com/opinionfeed)",
			TimeoutSeconds: 60,
			MaxItems:       10,
		},
		Extraction: Extraction{
			MinContentChars: 200,
			MaxPromptChars:  80000,
		},
		Summarization: Summarization{
			APIVersion:         "v1beta",
			APIKeyEnv:          "GEMINI_API_KEY",
			FallbackAPIKeyEnv:  "GOOGLE_API_KEY",
			MaxAttempts:        8,
			RetryMarginSeconds: 1,
			Temperature:        0.2,
			MaxOutputTokens:    650,
		},
		Channels: Channels{
			Opinions: Channel{
				Title:       "Supreme Court of the United States - Recent Decisions",
				Link:        "https://www.law.cornell.edu/supremecourt/text",
				Description: "Most recent SCOTUS decisions, generated from Cornell LII.",
				Language:    "en-us",
			},
			FullText: Channel{
				Title:       "SCOTUS (CourtListener) + Full Text",
				Link:        "https://www.courtlistener.com/court/scotus/",
				Description: "Latest SCOTUS items with extracted PDF text.",
				Language:    "en-us",
			},
			Summary: Channel{
				Title:       "Supreme Court of the United States - Recent Decisions (Summaries)",
				Link:        "https://www.law.cornell.edu/supremecourt/text",
				Description: "Background / Holding / Reasoning / Outcome summaries generated from Cornell LII.",
				Language:    "en-us",
			},
		},
		Output: Output{
			Dir:          "public",
			CachePath:    "data/summaries_cache.json",
			OpinionsFile: "opinions.xml",
			FullTextFile: "fulltext.xml",
			SummaryFile:  "summary.xml",
		},
		Server: Server{Port: 8000},
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	return cfg, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
