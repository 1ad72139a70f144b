// Package config handles application configuration. Credentials come from
// environment variables (optionally via a .env file); tunable behavior
// lives in a JSON settings file that the dashboard can rewrite at runtime.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	OpenAIAPIKey  string
	XAPIKey       string
	XAPISecret    string
	XAccessToken  string
	XAccessSecret string
	AutoPost      bool
	LogLevel      string
	SettingsPath  string
	LedgerPath    string

	Settings Settings
}

// Settings is the JSON settings document (config/config.json).
type Settings struct {
	RSSFeeds   []string         `json:"rss_feeds"`
	Topics     TopicPreferences `json:"topic_preferences"`
	TweetStyle TweetStyle       `json:"tweet_style"`
	AI         AISettings       `json:"ai_settings"`
}

// TopicPreferences filters fetched articles by keyword before selection.
// Empty lists disable filtering.
type TopicPreferences struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// TweetStyle controls final tweet formatting.
type TweetStyle struct {
	MaxLength   int      `json:"max_length"`
	MaxHashtags int      `json:"max_hashtags"`
	Hashtags    []string `json:"hashtags"`
}

// AISettings controls the generation backend.
type AISettings struct {
	Model           string  `json:"model"`
	Temperature     float32 `json:"temperature"`
	MaxRetries      int     `json:"max_retries"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// DefaultSettings returns the settings used when the JSON document omits a
// key. An explicit zero in the document is respected (notably max_hashtags).
func DefaultSettings() Settings {
	return Settings{
		TweetStyle: TweetStyle{
			MaxLength:   280,
			MaxHashtags: 2,
			Hashtags:    []string{"#Tech", "#AI"},
		},
		AI: AISettings{
			Model:           "gpt-4o-mini",
			Temperature:     0.9,
			MaxRetries:      3,
			MaxOutputTokens: 150,
		},
	}
}

// Load reads credentials from the environment (and .env, if present) and
// the settings document from SettingsPath.
func Load() (*Config, error) {
	// A missing .env is fine; real env vars take precedence anyway.
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		XAPIKey:       os.Getenv("X_API_KEY"),
		XAPISecret:    os.Getenv("X_API_SECRET"),
		XAccessToken:  os.Getenv("X_ACCESS_TOKEN"),
		XAccessSecret: os.Getenv("X_ACCESS_SECRET"),
		AutoPost:      strings.EqualFold(os.Getenv("AUTO_POST"), "true"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		SettingsPath:  envOrDefault("SETTINGS_PATH", "config/config.json"),
		LedgerPath:    envOrDefault("LEDGER_PATH", "data/posted_articles.json"),
	}

	settings, err := LoadSettings(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	cfg.Settings = *settings

	return cfg, nil
}

// LoadSettings reads and validates the JSON settings document at path.
// A missing file yields the defaults so a fresh checkout can start up.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path) //nolint:gosec // operator-provided path
	if os.IsNotExist(err) {
		return &s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the settings for values that would break a cycle.
func (s *Settings) Validate() error {
	if s.TweetStyle.MaxLength <= 0 {
		return fmt.Errorf("tweet_style.max_length must be positive, got %d", s.TweetStyle.MaxLength)
	}
	if s.TweetStyle.MaxHashtags < 0 {
		return fmt.Errorf("tweet_style.max_hashtags cannot be negative, got %d", s.TweetStyle.MaxHashtags)
	}
	if s.AI.MaxRetries < 1 {
		return fmt.Errorf("ai_settings.max_retries must be at least 1, got %d", s.AI.MaxRetries)
	}
	if s.AI.Temperature < 0 || s.AI.Temperature > 2 {
		return fmt.Errorf("ai_settings.temperature must be in [0, 2], got %g", s.AI.Temperature)
	}
	return nil
}

// HasXCredentials reports whether all four X API credentials are set.
func (c *Config) HasXCredentials() bool {
	return c.XAPIKey != "" && c.XAPISecret != "" && c.XAccessToken != "" && c.XAccessSecret != ""
}

// SaveSettings writes the settings document back to its file, creating the
// parent directory if needed.
func (c *Config) SaveSettings() error {
	if dir := filepath.Dir(c.SettingsPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(c.Settings, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(c.SettingsPath, data, 0o600); err != nil {
		return fmt.Errorf("write settings %s: %w", c.SettingsPath, err)
	}
	return nil
}

// AddFeed appends a feed URL to the settings and saves them.
func (c *Config) AddFeed(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("feed URL is required")
	}
	for _, f := range c.Settings.RSSFeeds {
		if f == url {
			return fmt.Errorf("feed already exists: %s", url)
		}
	}
	c.Settings.RSSFeeds = append(c.Settings.RSSFeeds, url)
	return c.SaveSettings()
}

// RemoveFeed deletes a feed URL from the settings and saves them.
func (c *Config) RemoveFeed(url string) error {
	url = strings.TrimSpace(url)
	for i, f := range c.Settings.RSSFeeds {
		if f == url {
			c.Settings.RSSFeeds = append(c.Settings.RSSFeeds[:i], c.Settings.RSSFeeds[i+1:]...)
			return c.SaveSettings()
		}
	}
	return fmt.Errorf("feed not found: %s", url)
}

// MergeSettings applies a partial settings update (raw JSON) on top of the
// current settings. Keys absent from the update keep their current values.
func (c *Config) MergeSettings(raw []byte) error {
	merged := c.Settings
	if err := json.Unmarshal(raw, &merged); err != nil {
		return fmt.Errorf("parse settings update: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return err
	}
	c.Settings = merged
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
